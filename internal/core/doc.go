// Package core orchestrates the badge mail merge.
//
// It ties the pipeline packages together and is the only layer the web
// server, the CLI and the background jobs talk to.
//
// # Runs
//
// [Service.Run] executes one run end to end:
//
//  1. Locate the newest export of each kind in the source directory, or
//     use uploaded exports from the request
//  2. Merge registrations, seating, form responses and QR codes
//  3. Resolve the rule set: a named set, else a database template or
//     registry entry matching the main event, else Default
//  4. Rewrite values, apply the inclusion and created-on filters and narrow
//     to the sub-event
//  5. Write the workbook and, when enabled, a statistics report
//
// Runs are bounded by a [RunLimiter] and a timeout, tagged with a run ID in
// every log line, and recorded in the run history when a database is
// configured.
//
// # Background Jobs
//
// [Service.StartMergeScheduler] repeats a run on an interval and
// [Service.Watch] repeats it whenever new exports land in the source
// directory.
//
// # Rule Sets
//
// Rule sets come from three places, in order of precedence: templates stored
// in PostgreSQL, the YAML rules file, and the built-ins registered by
// package events.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. See
// errors.go for the code reference.
package core
