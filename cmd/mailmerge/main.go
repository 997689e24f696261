// Command mailmerge builds badge mail-merge workbooks from CRM exports.
//
//	mailmerge run --dir data --main-event "Convention 2025"
//	mailmerge run --sub-event "Casino Night" --stats
//	mailmerge events
//	mailmerge watch --dir data
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/badgemerge/internal/core"
	_ "github.com/JonMunkholm/badgemerge/internal/preprocess/events" // Register built-in rule sets
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; explicit environment wins over the file.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintln(os.Stderr, errorStyle.Render(core.FormatUserError(err)))
		}
		os.Exit(1)
	}
}
