package healmon

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Duration is a time.Duration that unmarshals from TOML strings like "5s".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	dura, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = dura
	return nil
}

// Config is the supervisor's configuration, loaded from a TOML file over
// defaults.
type Config struct {
	// ProcessList is the path to the process specification file.
	ProcessList string `toml:"process_list"`
	// Journal is the path to the journal file; it doubles as the
	// single-instance lock.
	Journal string `toml:"journal"`
	// PollInterval is the sleep between reconciliation cycles.
	PollInterval Duration `toml:"poll_interval"`

	Cooldown CooldownConfig `toml:"cooldown"`
	Email    EmailConfig    `toml:"email"`
}

// CooldownConfig tunes the restart rate limiter.
type CooldownConfig struct {
	StateFile   string   `toml:"state_file"`
	MaxRestarts int      `toml:"max_restarts"`
	Window      Duration `toml:"window"`
	Duration    Duration `toml:"duration"`
}

// EmailConfig configures the crash notifier. Disabled by default.
type EmailConfig struct {
	Enabled    bool   `toml:"enabled"`
	SMTPServer string `toml:"smtp_server"`
	SMTPPort   int    `toml:"smtp_port"`
	UseSSL     bool   `toml:"use_ssl"`
	Sender     string `toml:"sender"`
	Password   string `toml:"password"`
	Receiver   string `toml:"receiver"`
}

// DefaultConfigPath returns where LoadConfig looks when no path is given.
func DefaultConfigPath() string {
	dir := "."
	if configDir, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(configDir, "healmon")
	}
	return filepath.Join(dir, "config.toml")
}

// DefaultConfig returns the built-in defaults, rooted in the user config
// directory.
func DefaultConfig() Config {
	dir := "."
	if configDir, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(configDir, "healmon")
	}

	return Config{
		ProcessList:  filepath.Join(dir, "process_list.txt"),
		Journal:      filepath.Join(dir, "journal.json"),
		PollInterval: Duration{DefaultPollInterval},
		Cooldown: CooldownConfig{
			StateFile:   filepath.Join(dir, "cooldown_state.json"),
			MaxRestarts: 5,
			Window:      Duration{60 * time.Second},
			Duration:    Duration{120 * time.Second},
		},
		Email: EmailConfig{
			Enabled:  false,
			SMTPPort: 465,
			UseSSL:   true,
		},
	}
}

// LoadConfig reads the TOML file at path over the defaults. A missing file is
// not an error; the defaults stand.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "failed to read config")
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse config")
	}

	return cfg, nil
}
