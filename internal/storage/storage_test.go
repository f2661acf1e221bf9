package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	logx "crewsched/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func testAuditRoundTrip(t *testing.T, cfg Config) {
	t.Helper()
	ctx := context.Background()
	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	base := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	entries := []AuditEntry{
		{At: base, ActorID: 1, Action: "task.added", Target: "Morning Exercise", OK: true},
		{At: base.Add(time.Minute), ActorID: 1, Action: "task.conflict", Target: "Training Session", Detail: "Team Meeting", Error: "conflict"},
		{At: base.Add(2 * time.Minute), ActorID: 2, ActorUsername: "cmdr", Action: "task.removed", Target: "Morning Exercise", OK: true},
	}
	for _, e := range entries {
		if err := st.AppendAudit(ctx, e); err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}

	got, err := st.RecentAudit(ctx, 2)
	if err != nil {
		t.Fatalf("RecentAudit: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentAudit returned %d entries, want 2", len(got))
	}
	if got[0].Action != "task.removed" || got[0].ActorUsername != "cmdr" || !got[0].OK {
		t.Fatalf("newest entry = %+v", got[0])
	}
	if got[1].Action != "task.conflict" || got[1].Detail != "Team Meeting" || got[1].OK {
		t.Fatalf("second entry = %+v", got[1])
	}
	if !got[1].At.Equal(base.Add(time.Minute)) {
		t.Fatalf("At = %v", got[1].At)
	}

	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.AppendAudit(ctx, entries[0]); !errors.Is(err, ErrDisabled) {
		t.Fatalf("AppendAudit after Close = %v, want ErrDisabled", err)
	}
}

func TestFileStoreAudit(t *testing.T) {
	t.Parallel()
	testAuditRoundTrip(t, Config{Driver: "file", Path: filepath.Join(t.TempDir(), "crewsched.db")})
}

func TestSQLiteStoreAudit(t *testing.T) {
	t.Parallel()
	testAuditRoundTrip(t, Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "crewsched.db"), BusyTimeout: time.Second})
}

func testCloseWhileWriting(t *testing.T, cfg Config) {
	t.Helper()
	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				e := AuditEntry{Action: "task.added", Target: "Lunch Break", OK: true}
				if err := st.AppendAudit(context.Background(), e); err != nil && !errors.Is(err, ErrDisabled) {
					errs <- err
				}
			}
		}()
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("AppendAudit during Close: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestFileStoreCloseWhileWriting(t *testing.T) {
	t.Parallel()
	testCloseWhileWriting(t, Config{Driver: "file", Path: filepath.Join(t.TempDir(), "crewsched.db")})
}

func TestSQLiteStoreCloseWhileWriting(t *testing.T) {
	t.Parallel()
	testCloseWhileWriting(t, Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "crewsched.db")})
}
