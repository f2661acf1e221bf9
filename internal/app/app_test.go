package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"crewsched/internal/commands"
	"crewsched/internal/config"
	"crewsched/internal/eventbus"
	"crewsched/internal/roster"
	"crewsched/internal/storage"
	logx "crewsched/pkg/logx"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func hasCommand(cmds []commands.Command, name string) bool {
	for _, c := range cmds {
		if c.Name == name {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConsoleSessionWithAudit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfgYAML := strings.Join([]string{
		"transport:",
		"  driver: console",
		"logging:",
		"  level: error",
		"schedule:",
		"  time_mode: strict",
		"storage:",
		"  driver: file",
		"  path: " + filepath.Join(dir, "crew.db"),
		"",
	}, "\n")
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	in := strings.NewReader(strings.Join([]string{
		`add "Team Meeting" 9:00 10:00 Medium`,
		`add "Training Session" 09:30 10:30 High`,
		`list`,
		`remove team meeting`,
		"",
	}, "\n"))
	out := &syncBuffer{}

	a, err := New(cfgPath, WithConsoleIO(in, out))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.reg.Mode() != roster.TimeStrict {
		t.Fatalf("time mode = %v, want strict", a.reg.Mode())
	}
	if !hasCommand(a.router.Commands(), "history") {
		t.Fatal("/history not registered with an audit store")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, "replies", func() bool { return strings.Count(out.String(), "\n") >= 4 })
	want := strings.Join([]string{
		"Task added successfully. No conflicts.",
		`Error: Task conflicts with existing task "Team Meeting"`,
		"09:00 - 10:00: Team Meeting [Medium]",
		"Task removed successfully.",
		"",
	}, "\n")
	if got := out.String(); got != want {
		t.Fatalf("console output:\n%s\nwant:\n%s", got, want)
	}

	waitFor(t, "audit rows", func() bool {
		rows, err := a.store.RecentAudit(context.Background(), 10)
		return err == nil && len(rows) == 3
	})
	rows, _ := a.store.RecentAudit(context.Background(), 10)
	if rows[0].Action != eventbus.TypeTaskRemoved || rows[2].Action != eventbus.TypeTaskAdded {
		t.Fatalf("audit actions = %s, %s, %s", rows[0].Action, rows[1].Action, rows[2].Action)
	}
	if rows[1].OK || rows[1].Target != "Training Session" {
		t.Fatalf("conflict row = %+v", rows[1])
	}

	select {
	case <-a.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("app still running after input ended")
	}
	if err := a.Err(); err != nil {
		t.Fatalf("Err = %v, want clean exit", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if a.reg.Len() != 0 {
		t.Fatalf("registry has %d tasks", a.reg.Len())
	}
}

func TestConsoleEOFStopsApp(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(cfgPath, []byte(`{"transport":{"driver":"console"},"logging":{"level":"error"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	out := &syncBuffer{}
	a, err := New(cfgPath, WithConsoleIO(strings.NewReader("list\n"), out))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-a.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("input exhausted (out=%q) but app did not stop", out.String())
	}
	if err := a.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
	if got := out.String(); got != "No tasks scheduled for the day.\n" {
		t.Fatalf("output = %q", got)
	}
	if hasCommand(a.router.Commands(), "history") {
		t.Fatal("/history registered without storage")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestNewRejectsBadAgenda(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	body := `{"transport":{"driver":"console"},"agenda":{"enabled":true,"at":"25:00"}}`
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(cfgPath, WithConsoleIO(strings.NewReader(""), &bytes.Buffer{})); err == nil || !strings.Contains(err.Error(), "agenda.at") {
		t.Fatalf("New err = %v, want agenda.at error", err)
	}
}

func TestMapRouterConfig(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.Transport.Telegram.OwnerUserIDs = []int64{5}
	cfg.Transport.RatePerMin = 30

	rc, err := mapRouterConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(rc.Owners) != 0 {
		t.Fatalf("console owners = %v, want none", rc.Owners)
	}
	if rc.Timeout != defaultCommandTimeout || rc.RatePerMin != 30 {
		t.Fatalf("rc = %+v", rc)
	}

	cfg.Transport.Driver = "telegram"
	cfg.Transport.CommandTimeout = "3s"
	rc, err = mapRouterConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(rc.Owners) != 1 || rc.Owners[0] != 5 || rc.Timeout != 3*time.Second {
		t.Fatalf("telegram rc = %+v", rc)
	}

	cfg.Transport.CommandTimeout = "soon"
	if _, err := mapRouterConfig(cfg); err == nil {
		t.Fatal("expected duration error")
	}
}

func TestMapAgendaConfig(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Transport: config.TransportConfig{Driver: "telegram"},
		Schedule:  config.ScheduleConfig{Timezone: "UTC"},
		Agenda:    &config.AgendaConfig{Enabled: true, At: " 06:30 ", ChatID: -1001, ThreadID: 7},
	}
	ac := mapAgendaConfig(cfg)
	if !ac.Enabled || ac.At != "06:30" || ac.Timezone != "UTC" || ac.Target.ChatID != -1001 || ac.Target.ThreadID != 7 {
		t.Fatalf("agenda config = %+v", ac)
	}
	cfg.Agenda = nil
	if ac := mapAgendaConfig(cfg); ac.Enabled {
		t.Fatal("nil agenda section enabled the agenda")
	}
}

func TestMapLogConfigUsesStderrForConsole(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Logging: config.LoggingConfig{Level: "debug", Console: true}}
	if lc := mapLogConfig(cfg); !lc.Stderr || lc.Level != "debug" {
		t.Fatalf("console log config = %+v", lc)
	}
	cfg.Transport.Driver = "telegram"
	if lc := mapLogConfig(cfg); lc.Stderr {
		t.Fatal("telegram transport should log to stdout")
	}
}

func TestAuditEntry(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e, ok := auditEntry(eventbus.Event{
		Type: eventbus.TypeTaskConflict,
		Time: at,
		Data: eventbus.TaskEvent{
			ActorID: 3, ChatID: 4, Description: "Training Session",
			Start: "09:30", End: "10:30", Priority: "High",
			ConflictWith: "Team Meeting", Err: "conflict",
		},
	})
	if !ok {
		t.Fatal("task event not audited")
	}
	if e.OK || e.Target != "Training Session" || e.Detail != `09:30-10:30 High conflicts with "Team Meeting"` || !e.At.Equal(at) {
		t.Fatalf("entry = %+v", e)
	}
	if _, ok := auditEntry(eventbus.Event{Type: "other", Data: 1}); ok {
		t.Fatal("unknown payload audited")
	}
}

func TestRecordAuditStopsOnClose(t *testing.T) {
	t.Parallel()
	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "a.db")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	events := make(chan eventbus.Event, 2)
	events <- eventbus.Event{Type: eventbus.TypeAgendaSent, Time: time.Now(), Data: eventbus.AgendaEvent{ChatID: 1, Tasks: 2}}
	close(events)
	recordAudit(context.Background(), events, st, logx.Nop())

	rows, err := st.RecentAudit(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Detail != "2 tasks" || !rows[0].OK {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestReportBusDrops(t *testing.T) {
	t.Parallel()
	var buf syncBuffer
	log := logx.NewWriter(&buf, "warn")
	bus := eventbus.New()
	_, unsub := bus.Subscribe(1, "task.")
	defer unsub()

	var last uint64
	reportBusDrops(log, bus, &last)
	if buf.String() != "" {
		t.Fatalf("reported without drops: %s", buf.String())
	}

	for i := 0; i < 3; i++ {
		bus.Publish(eventbus.Event{Type: eventbus.TypeTaskAdded})
	}
	reportBusDrops(log, bus, &last)
	if last != 2 || !strings.Contains(buf.String(), `"count":2`) {
		t.Fatalf("last=%d log=%s", last, buf.String())
	}

	before := buf.String()
	reportBusDrops(log, bus, &last)
	if buf.String() != before {
		t.Fatal("same drops reported twice")
	}
}

func TestRecordAuditDrainsAfterCancel(t *testing.T) {
	t.Parallel()
	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "a.db")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	events := make(chan eventbus.Event, 3)
	for _, d := range []string{"A", "B", "C"} {
		events <- eventbus.Event{Type: eventbus.TypeTaskAdded, Time: time.Now(), Data: eventbus.TaskEvent{Description: d}}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	recordAudit(ctx, events, st, logx.Nop())

	rows, err := st.RecentAudit(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows after cancel, want 3", len(rows))
	}
}
