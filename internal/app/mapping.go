package app

import (
	"strings"
	"time"

	"crewsched/internal/agenda"
	"crewsched/internal/commands"
	"crewsched/internal/config"
	"crewsched/internal/roster"
	"crewsched/internal/storage"
	kit "crewsched/internal/transport"
	"crewsched/internal/transport/console"
	logx "crewsched/pkg/logx"
)

const defaultCommandTimeout = 10 * time.Second

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		// stdout carries replies for the console transport
		Stderr: config.TransportDriver(cfg) == "console",
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapRouterConfig(cfg *config.Config) (commands.RouterConfig, error) {
	timeout, err := config.ParseDurationOrDefault("transport.command_timeout", cfg.Transport.CommandTimeout, defaultCommandTimeout)
	if err != nil {
		return commands.RouterConfig{}, err
	}
	rc := commands.RouterConfig{
		RatePerMin: cfg.Transport.RatePerMin,
		Timeout:    timeout,
	}
	// The console operator is the owner by definition.
	if config.TransportDriver(cfg) == "telegram" {
		rc.Owners = append([]int64(nil), cfg.Transport.Telegram.OwnerUserIDs...)
	}
	return rc, nil
}

func mapAgendaConfig(cfg *config.Config) agenda.Config {
	a := cfg.Agenda
	if a == nil {
		return agenda.Config{Timezone: cfg.Schedule.Timezone}
	}
	target := kit.ChatTarget{ChatID: a.ChatID, ThreadID: a.ThreadID}
	if config.TransportDriver(cfg) == "console" {
		target = kit.ChatTarget{ChatID: console.ChatID}
	}
	return agenda.Config{
		Enabled:  a.Enabled,
		At:       strings.TrimSpace(a.At),
		Timezone: cfg.Schedule.Timezone,
		Target:   target,
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	s := cfg.Storage
	if s == nil {
		return storage.Config{}, false, nil
	}
	driver := strings.ToLower(strings.TrimSpace(s.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", s.BusyTimeout)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: strings.TrimSpace(s.Path), BusyTimeout: busy}, true, nil
}

func mapTimeMode(cfg *config.Config) roster.TimeMode {
	m, _ := roster.ParseTimeMode(cfg.Schedule.TimeMode)
	return m
}
