package config

type Config struct {
	Server   ServerConfig   `json:"server"`
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`

	// Digest controls the optional scheduled activity summary.
	Digest *DigestConfig `json:"digest,omitempty"`
}

// ServerConfig controls the HTTP listener.
//
// All timeouts are Go duration strings (e.g. "5s", "1m").
type ServerConfig struct {
	// Addr is the listen address (default ":8000"). Changing it requires a restart.
	Addr string `json:"addr"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`

	// MaxBodyBytes caps inbound request bodies (default 1 MiB).
	MaxBodyBytes int64 `json:"max_body_bytes,omitempty"`
}

// TelegramConfig controls outbound message delivery.
type TelegramConfig struct {
	Token string `json:"token"`

	// DefaultChat is the fallback destination used by channels that don't
	// carry their own. Numeric chat id or "@channelname".
	DefaultChat string `json:"default_chat"`

	// SendTimeout is a Go duration string (default "10s").
	SendTimeout string `json:"send_timeout,omitempty"`

	// RatePerSec bounds outbound sends (default 25).
	RatePerSec int `json:"rate_per_sec,omitempty"`
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

// StorageConfig controls where channel and delivery data lives.
//
// Driver values:
//   - "file" (default): day-partitioned JSON Lines under <data_dir>/logs
//   - "sqlite": SQLite database file (optional build tag)
//
// The channel snapshot (<data_dir>/channels.json) is file-backed regardless
// of driver. Changing this section requires a restart.
type StorageConfig struct {
	Driver  string `json:"driver,omitempty"`
	DataDir string `json:"data_dir,omitempty"`

	// BusyTimeout is a Go duration string (sqlite only).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// DigestConfig controls the optional daily activity summary.
type DigestConfig struct {
	Enabled bool `json:"enabled"`

	// Schedule is a cron spec (default "0 9 * * *").
	Schedule string `json:"schedule,omitempty"`

	// Destination overrides telegram.default_chat for the summary message.
	Destination string `json:"destination,omitempty"`
}
