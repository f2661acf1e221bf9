package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks structural rules that don't need other packages.
// Deeper checks (agenda spec, timezone) run in the app's validator hook.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch TransportDriver(cfg) {
	case "console":
	case "telegram":
		if strings.TrimSpace(cfg.Transport.Telegram.Token) == "" {
			return errors.New("transport.telegram.token is required when transport.driver=telegram")
		}
		if _, err := ParseDurationField("transport.telegram.poll_timeout", cfg.Transport.Telegram.PollTimeout); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown transport.driver: %s", cfg.Transport.Driver)
	}
	if cfg.Transport.RatePerMin < 0 {
		return errors.New("transport.rate_per_min must be >= 0")
	}
	if _, err := ParseDurationField("transport.command_timeout", cfg.Transport.CommandTimeout); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Schedule.TimeMode)) {
	case "", "legacy", "string", "strict":
	default:
		return fmt.Errorf("unknown schedule.time_mode: %s (use legacy or strict)", cfg.Schedule.TimeMode)
	}
	if tz := strings.TrimSpace(cfg.Schedule.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("schedule.timezone: %w", err)
		}
	}

	if a := cfg.Agenda; a != nil && a.Enabled {
		if strings.TrimSpace(a.At) == "" {
			return errors.New("agenda.at is required when agenda.enabled=true")
		}
		if a.ChatID == 0 && TransportDriver(cfg) == "telegram" {
			return errors.New("agenda.chat_id is required for the telegram transport")
		}
	}

	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(s.Path) == "" {
				return fmt.Errorf("storage.path is required when storage.driver=%s", s.Driver)
			}
		default:
			return fmt.Errorf("unknown storage.driver: %s", s.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}

// TransportDriver returns the normalized driver name ("console" when empty).
func TransportDriver(cfg *Config) string {
	d := strings.ToLower(strings.TrimSpace(cfg.Transport.Driver))
	if d == "" {
		return "console"
	}
	return d
}
