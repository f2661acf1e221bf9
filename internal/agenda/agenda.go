// Package agenda broadcasts the day's task list to a chat on a cron schedule.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"crewsched/internal/eventbus"
	"crewsched/internal/roster"
	kit "crewsched/internal/transport"
	logx "crewsched/pkg/logx"
)

type Config struct {
	Enabled bool
	// At is "HH:MM" (daily) or a cron spec ("0 7 * * 1-5", "@every 1h").
	At       string
	Timezone string
	Target   kit.ChatTarget
}

// Source is the registry view the agenda reads.
type Source interface {
	Tasks() ([]roster.Task, bool)
}

// SecondOptional allows both 5-field and 6-field cron specs.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Service struct {
	log     logx.Logger
	src     Source
	adapter kit.Adapter
	bus     eventbus.Bus

	// target is read by running jobs without taking mu, which Stop holds
	// while waiting for them.
	target atomic.Pointer[kit.ChatTarget]

	mu     sync.Mutex
	cfg    Config
	c      *cron.Cron
	entry  cron.EntryID
	runCtx context.Context
}

func New(cfg Config, src Source, adapter kit.Adapter, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{cfg: cfg, src: src, adapter: adapter, bus: bus, log: log}
	s.setTarget(cfg.Target)
	return s
}

func (s *Service) setTarget(t kit.ChatTarget) { s.target.Store(&t) }

// ParseAt turns "HH:MM" into a daily cron spec and validates anything else
// as a cron spec.
func ParseAt(at string) (string, error) {
	at = strings.TrimSpace(at)
	if at == "" {
		return "", errors.New("empty schedule")
	}
	if strings.Count(at, ":") == 1 && !strings.ContainsAny(at, " @*") {
		h, m, err := parseHHMM(at)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d %d * * *", m, h), nil
	}
	if _, err := parser.Parse(at); err != nil {
		return "", fmt.Errorf("invalid cron spec %q: %w", at, err)
	}
	return at, nil
}

// parseHHMM reads a firing time, so "24:00" is rejected here even though
// task end times may use it.
func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

func loadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// Start schedules the broadcast. It is a no-op when disabled or already running.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.runCtx = ctx
	return s.startLocked()
}

func (s *Service) startLocked() error {
	cfg := s.cfg
	if !cfg.Enabled {
		s.log.Debug("agenda disabled")
		return nil
	}
	spec, err := ParseAt(cfg.At)
	if err != nil {
		return fmt.Errorf("agenda.at: %w", err)
	}
	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		s.log.Warn("unknown timezone, using local", logx.String("tz", cfg.Timezone), logx.Err(err))
		loc = time.Local
	}

	c := cron.New(cron.WithParser(parser), cron.WithLocation(loc))
	runCtx := s.runCtx
	id, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(runCtx, 30*time.Second)
		defer cancel()
		if err := s.SendNow(ctx); err != nil {
			s.log.Warn("scheduled agenda failed", logx.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("agenda schedule %q: %w", spec, err)
	}
	c.Start()
	s.c = c
	s.entry = id
	s.log.Info("agenda scheduled",
		logx.String("spec", spec),
		logx.String("tz", loc.String()),
		logx.Int64("chat_id", cfg.Target.ChatID),
		logx.Time("next", c.Entry(id).Next),
	)
	return nil
}

func (s *Service) stopLocked(ctx context.Context) {
	c := s.c
	s.c = nil
	s.entry = 0
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("agenda stop timed out; job still running")
	}
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(ctx)
	s.log.Debug("agenda stopped")
}

// Apply swaps the config and reschedules when the schedule changed.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cfg
	s.cfg = cfg
	s.setTarget(cfg.Target)
	if s.runCtx == nil {
		return nil
	}
	if old.Enabled == cfg.Enabled && old.At == cfg.At && old.Timezone == cfg.Timezone && s.c != nil {
		return nil
	}
	s.stopLocked(context.Background())
	return s.startLocked()
}

// Next is the next scheduled run, or zero when not scheduled.
func (s *Service) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return time.Time{}
	}
	return s.c.Entry(s.entry).Next
}

// SendNow renders the current tasks and sends them to the configured chat.
func (s *Service) SendNow(ctx context.Context) error {
	target := *s.target.Load()
	tasks, ok := s.src.Tasks()
	_, err := s.adapter.SendText(ctx, target, Render(tasks, ok), &kit.SendOptions{DisablePreview: true})

	ev := eventbus.AgendaEvent{ChatID: target.ChatID, Tasks: len(tasks)}
	if err != nil {
		ev.Err = err.Error()
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeAgendaSent, Data: ev})
	}
	if err != nil {
		return fmt.Errorf("send agenda: %w", err)
	}
	s.log.Info("agenda sent", logx.Int64("chat_id", target.ChatID), logx.Int("tasks", len(tasks)))
	return nil
}

// Render produces the broadcast text.
func Render(tasks []roster.Task, ok bool) string {
	if !ok || len(tasks) == 0 {
		return "Today's agenda\nNo tasks scheduled for the day."
	}
	var b strings.Builder
	b.WriteString("Today's agenda")
	for i, t := range tasks {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(t.String())
	}
	return b.String()
}
