// Package config loads the small JSON configuration file rmstream reads
// at startup, falling back to safe defaults whenever the file is absent.
package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Config holds the settings this domain actually needs: where to listen,
// an optional override of the sampler's poll interval (used by tests and
// by operators tuning battery/CPU tradeoffs), and whether to emit debug
// logging.
type Config struct {
	ListenAddr  string        `json:"listen_addr"`
	PollRate    time.Duration `json:"poll_rate_ms"`
	VerboseLogs bool          `json:"verbose_logs"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ListenAddr:  ":3000",
		PollRate:    20 * time.Millisecond,
		VerboseLogs: false,
	}
}

// Path returns the default config file location,
// $XDG_CONFIG_HOME/rmstream/config.json (or the platform equivalent via
// os.UserConfigDir).
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rmstream", "config.json"), nil
}

// rawConfig mirrors Config's JSON shape with poll_rate_ms expressed in
// plain milliseconds, since time.Duration does not round-trip through
// encoding/json on its own.
type rawConfig struct {
	ListenAddr  string `json:"listen_addr"`
	PollRateMs  int64  `json:"poll_rate_ms"`
	VerboseLogs bool   `json:"verbose_logs"`
}

// Load reads the config file at path, returning Default() with a logged
// notice if it does not exist. Any other read or parse error is
// returned to the caller.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config: %s not found, using defaults", path)
			return cfg, nil
		}
		return Config{}, err
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, err
	}

	if raw.ListenAddr != "" {
		cfg.ListenAddr = raw.ListenAddr
	}
	if raw.PollRateMs > 0 {
		cfg.PollRate = time.Duration(raw.PollRateMs) * time.Millisecond
	}
	cfg.VerboseLogs = raw.VerboseLogs

	return cfg, nil
}
