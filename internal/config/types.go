package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// DataDir is where catalog files (events.yaml, resources.yaml) live.
	// Created on first use. Default: "data".
	DataDir string `json:"data_dir,omitempty"`

	Reminder ReminderConfig `json:"reminder"`

	// Storage is the optional audit/dedup store. Nil or driver "none"
	// disables it; the reminder then runs without a last-notified marker.
	Storage *StorageConfig `json:"storage,omitempty"`

	LLM *LLMConfig `json:"llm,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// AdminUserIDs may use add/update/delete commands.
	AdminUserIDs []int64 `json:"admin_user_ids"`

	// AnnounceChatIDs receive event reminders. A chat the bot cannot
	// reach is skipped, not an error.
	AnnounceChatIDs []int64 `json:"announce_chat_ids"`

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

// ReminderConfig controls the event reminder scheduler.
//
// Interval is a Go duration string; default "1h". The notification windows
// (day-before, hour-before) are fixed and sized for an hourly tick, so
// shortening the interval only makes duplicate notices more likely unless a
// dedup storage driver is configured.
type ReminderConfig struct {
	Enabled  bool   `json:"enabled"`
	Interval string `json:"interval,omitempty"`
}

// StorageConfig controls the optional persistence layer for audit entries
// and reminder dedup markers.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./senseibot_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// LLMConfig controls the /ask command. Disabled (or nil) means /ask replies
// with a not-configured message instead of erroring.
type LLMConfig struct {
	Enabled bool   `json:"enabled"`
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model,omitempty"`

	// SystemPromptPath points at a plain-text system prompt. Missing file
	// falls back to a built-in default prompt.
	SystemPromptPath string `json:"system_prompt_path,omitempty"`

	RetryMax int `json:"retry_max,omitempty"`
}
