package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestStartMergeScheduler_RunsImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig(t)
	writeExports(t, cfg.Merge.SourceDir)
	s := newTestService(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.StartMergeScheduler(ctx, ScheduleConfig{Interval: time.Hour})
	}()

	want := filepath.Join(cfg.Merge.OutputDir, "MAIL_MERGE_v3_20250314_130509.xlsx")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(want); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatalf("scheduled run did not write %s", want)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestStartMergeScheduler_SurvivesFailedRuns(t *testing.T) {
	defer goleak.VerifyNone(t)

	// No exports: every run fails with missing files.
	s := newTestService(t, testConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.StartMergeScheduler(ctx, ScheduleConfig{Interval: 10 * time.Millisecond})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop at deadline")
	}
	if st := s.LimiterStatus(); st.Active != 0 {
		t.Errorf("active runs after stop = %d, want 0", st.Active)
	}
}

func TestStartMergeScheduler_CancelledBeforeStart(t *testing.T) {
	cfg := testConfig(t)
	writeExports(t, cfg.Merge.SourceDir)
	s := newTestService(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.StartMergeScheduler(ctx, ScheduleConfig{})

	if _, err := os.Stat(cfg.Merge.OutputDir); !os.IsNotExist(err) {
		t.Errorf("output directory created by a cancelled scheduler: %v", err)
	}
}
