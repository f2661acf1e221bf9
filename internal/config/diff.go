package config

import (
	"reflect"
	"sort"
	"strings"

	logx "crewsched/pkg/logx"
)

// SummarizeConfigChange returns a sorted list of changed sections and safe
// structured fields for logging. Tokens are never included.
//
// restart lists sections whose changes only take effect after a restart.
func SummarizeConfigChange(oldCfg, newCfg *Config) (changed []string, attrs []logx.Field, restart []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed = make([]string, 0, 5)
	attrs = make([]logx.Field, 0, 16)

	ot, nt := oldCfg.Transport, newCfg.Transport
	if TransportDriver(oldCfg) != TransportDriver(newCfg) ||
		strings.TrimSpace(ot.Telegram.Token) != strings.TrimSpace(nt.Telegram.Token) ||
		strings.TrimSpace(ot.Telegram.PollTimeout) != strings.TrimSpace(nt.Telegram.PollTimeout) {
		restart = append(restart, "transport")
	}
	if !reflect.DeepEqual(ot, nt) {
		changed = append(changed, "transport")
		attrs = append(attrs,
			logx.String("transport.driver", TransportDriver(newCfg)),
			logx.Int("transport.owner_count", len(nt.Telegram.OwnerUserIDs)),
			logx.Int("transport.rate_per_min", nt.RatePerMin),
			logx.String("transport.command_timeout", strings.TrimSpace(nt.CommandTimeout)),
			logx.Bool("transport.token_changed", strings.TrimSpace(ot.Telegram.Token) != strings.TrimSpace(nt.Telegram.Token)),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Schedule != newCfg.Schedule {
		changed = append(changed, "schedule")
		attrs = append(attrs,
			logx.String("schedule.time_mode", strings.TrimSpace(newCfg.Schedule.TimeMode)),
			logx.String("schedule.timezone", strings.TrimSpace(newCfg.Schedule.Timezone)),
		)
		if !strings.EqualFold(strings.TrimSpace(oldCfg.Schedule.TimeMode), strings.TrimSpace(newCfg.Schedule.TimeMode)) {
			restart = append(restart, "schedule.time_mode")
		}
	}

	oa, na := derefAgenda(oldCfg.Agenda), derefAgenda(newCfg.Agenda)
	if oa != na {
		changed = append(changed, "agenda")
		attrs = append(attrs,
			logx.Bool("agenda.enabled", na.Enabled),
			logx.String("agenda.at", strings.TrimSpace(na.At)),
			logx.Int64("agenda.chat_id", na.ChatID),
		)
	}

	oldS, newS := derefStorage(oldCfg.Storage), derefStorage(newCfg.Storage)
	if oldS != newS {
		changed = append(changed, "storage")
		restart = append(restart, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(newS.Path) != ""),
		)
	}

	sort.Strings(changed)
	sort.Strings(restart)
	return changed, attrs, restart
}

func derefAgenda(a *AgendaConfig) AgendaConfig {
	if a == nil {
		return AgendaConfig{}
	}
	return *a
}

func derefStorage(s *StorageConfig) StorageConfig {
	if s == nil {
		return StorageConfig{}
	}
	return *s
}
