package config

import (
	"sort"
	"strings"

	logx "hookrelay/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging (never includes secrets like tokens).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	// Server (addr changes need a restart; the reload loop warns about it)
	if strings.TrimSpace(oldCfg.Server.Addr) != strings.TrimSpace(newCfg.Server.Addr) ||
		strings.TrimSpace(oldCfg.Server.ReadTimeout) != strings.TrimSpace(newCfg.Server.ReadTimeout) ||
		strings.TrimSpace(oldCfg.Server.WriteTimeout) != strings.TrimSpace(newCfg.Server.WriteTimeout) ||
		strings.TrimSpace(oldCfg.Server.IdleTimeout) != strings.TrimSpace(newCfg.Server.IdleTimeout) ||
		oldCfg.Server.MaxBodyBytes != newCfg.Server.MaxBodyBytes {
		changed = append(changed, "server")
		attrs = append(attrs,
			logx.String("server.addr", strings.TrimSpace(newCfg.Server.Addr)),
			logx.Int64("server.max_body_bytes", newCfg.Server.MaxBodyBytes),
		)
	}

	// Telegram (never log token)
	if strings.TrimSpace(oldCfg.Telegram.Token) != strings.TrimSpace(newCfg.Telegram.Token) ||
		strings.TrimSpace(oldCfg.Telegram.DefaultChat) != strings.TrimSpace(newCfg.Telegram.DefaultChat) ||
		strings.TrimSpace(oldCfg.Telegram.SendTimeout) != strings.TrimSpace(newCfg.Telegram.SendTimeout) ||
		oldCfg.Telegram.RatePerSec != newCfg.Telegram.RatePerSec {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_set", strings.TrimSpace(newCfg.Telegram.Token) != ""),
			logx.Bool("telegram.default_chat_set", strings.TrimSpace(newCfg.Telegram.DefaultChat) != ""),
			logx.String("telegram.send_timeout", strings.TrimSpace(newCfg.Telegram.SendTimeout)),
			logx.Int("telegram.rate_per_sec", newCfg.Telegram.RatePerSec),
		)
	}

	// Logging
	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Storage (restart required; the reload loop warns about it)
	if strings.TrimSpace(oldCfg.Storage.Driver) != strings.TrimSpace(newCfg.Storage.Driver) ||
		strings.TrimSpace(oldCfg.Storage.DataDir) != strings.TrimSpace(newCfg.Storage.DataDir) ||
		strings.TrimSpace(oldCfg.Storage.BusyTimeout) != strings.TrimSpace(newCfg.Storage.BusyTimeout) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newCfg.Storage.Driver)),
			logx.String("storage.data_dir", strings.TrimSpace(newCfg.Storage.DataDir)),
		)
	}

	// Digest (section may be omitted; nil means disabled)
	od := derefDigest(oldCfg.Digest)
	nd := derefDigest(newCfg.Digest)
	if od.Enabled != nd.Enabled ||
		strings.TrimSpace(od.Schedule) != strings.TrimSpace(nd.Schedule) ||
		strings.TrimSpace(od.Destination) != strings.TrimSpace(nd.Destination) {
		changed = append(changed, "digest")
		attrs = append(attrs,
			logx.Bool("digest.enabled", nd.Enabled),
			logx.String("digest.schedule", strings.TrimSpace(nd.Schedule)),
			logx.Bool("digest.destination_set", strings.TrimSpace(nd.Destination) != ""),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

func derefDigest(d *DigestConfig) DigestConfig {
	if d == nil {
		return DigestConfig{}
	}
	return *d
}
