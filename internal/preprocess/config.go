package preprocess

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode"
)

// DefaultTimezone is used when a Config names no zone.
const DefaultTimezone = "America/Los_Angeles"

// DefaultPrefix starts every output filename.
const DefaultPrefix = "MAIL_MERGE"

// ErrInvalidConfig marks a Config that failed validation.
var ErrInvalidConfig = errors.New("invalid preprocessing configuration")

// Config selects what a preprocessing run keeps.
type Config struct {
	MainEvent string `json:"main_event"`
	// SubEvent narrows rows and columns to one activity when set.
	SubEvent string `json:"sub_event,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	// InclusionList holds Contact IDs or Member IDs to keep.
	InclusionList []string `json:"inclusion_list,omitempty"`
	// CreatedOnFilter keeps records created on or after this time.
	CreatedOnFilter string `json:"created_on_filter,omitempty"`
}

// Validate checks the zone and normalises list entries.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidConfig, c.Timezone)
	}

	c.MainEvent = strings.TrimSpace(c.MainEvent)
	c.SubEvent = strings.TrimSpace(c.SubEvent)
	c.CreatedOnFilter = strings.TrimSpace(c.CreatedOnFilter)

	ids := c.InclusionList[:0]
	for _, id := range c.InclusionList {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	c.InclusionList = ids
	return nil
}

// Location returns the configured zone, falling back to the default zone
// and then UTC.
func (c Config) Location() *time.Location {
	tz := c.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc
	}
	return time.UTC
}

// OutputFilename names the workbook for this run:
// "{prefix}_{sub}_{YYYYmmdd_HHMMSS}.xlsx" for a sub-event run, otherwise
// "{prefix}_v3_{YYYYmmdd_HHMMSS}.xlsx". The stamp is in the configured zone.
func (c Config) OutputFilename(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	stamp := now.In(c.Location()).Format("20060102_150405")
	if c.SubEvent != "" {
		return fmt.Sprintf("%s_%s_%s.xlsx", prefix, cleanFilename(c.SubEvent), stamp)
	}
	return fmt.Sprintf("%s_v3_%s.xlsx", prefix, stamp)
}

// cleanFilename keeps letters, digits, "-" and "_" and turns everything
// else into "_".
func cleanFilename(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
}
