package config

type Config struct {
	Transport TransportConfig `json:"transport"`
	Logging   LoggingConfig   `json:"logging"`
	Schedule  ScheduleConfig  `json:"schedule"`

	// Agenda controls the daily schedule broadcast. Omitted means disabled.
	Agenda  *AgendaConfig  `json:"agenda,omitempty"`
	Storage *StorageConfig `json:"storage,omitempty"`
}

// TransportConfig selects where commands come from.
//
// Driver values:
//   - "console" (default): read commands from stdin, reply on stdout
//   - "telegram": long-poll a Telegram bot
type TransportConfig struct {
	Driver   string         `json:"driver"`
	Telegram TelegramConfig `json:"telegram"`

	// RatePerMin limits commands per sender. 0 disables limiting.
	RatePerMin int `json:"rate_per_min,omitempty"`
	// CommandTimeout is a Go duration string (e.g. "5s"). Empty uses the default.
	CommandTimeout string `json:"command_timeout,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// OwnerUserIDs restricts who may change the schedule. Empty allows everyone.
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ScheduleConfig controls the task registry.
//
// TimeMode:
//   - "legacy" (default): start/end compared as raw strings, never validated
//   - "strict": HH:MM required, start < end, compared as clock time
//
// TimeMode is read once at startup; changing it requires a restart.
type ScheduleConfig struct {
	TimeMode string `json:"time_mode,omitempty"`
	// Timezone is an IANA name used for the agenda trigger (e.g. "UTC").
	Timezone string `json:"timezone,omitempty"`
}

// AgendaConfig controls the daily agenda broadcast.
//
// At accepts "HH:MM" (every day at that time) or a cron spec ("0 6 * * *").
type AgendaConfig struct {
	Enabled  bool   `json:"enabled"`
	At       string `json:"at"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
}

// StorageConfig controls the audit trail.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/crewsched.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
