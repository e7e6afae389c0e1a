package internal

import (
	"fmt"
	"strings"
	"time"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=3000"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	StoreBackend     string        `env:"STORE_BACKEND,default=file"`
	MessagesFile     string        `env:"MESSAGES_FILE,default=messages.json"`
	BadgerFilepath   string        `env:"BADGER_FILEPATH,default=./data/badger"`
	BadgerGCInterval time.Duration `env:"BADGER_GC_INTERVAL,default=10m"`

	MessageTTL       time.Duration `env:"MESSAGE_TTL,default=0s"`
	MaxContentLength int           `env:"MAX_CONTENT_LENGTH,default=500"`
	DefaultTheme     string        `env:"DEFAULT_THEME,default=classic"`
	PublicURL        string        `env:"PUBLIC_URL"`
	CLIAgents        string        `env:"CLI_AGENTS"`
	CensoredWords    string        `env:"CENSORED_WORDS"`
	CharReplacement  string        `env:"CENSOR_CHARACTER,default=*"`
	Timezone         string        `env:"TIMEZONE,default=UTC"`

	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=1m"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=15s"`
	DebugPort       int           `env:"DEBUG_PORT,default=8081"`
	GopsEnabled     bool          `env:"GOPS_ENABLED,default=false"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Validate checks the values the env tags cannot express.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile, BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of file, badger, memory, got %q", c.StoreBackend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.MaxContentLength <= 0 {
		return fmt.Errorf("MAX_CONTENT_LENGTH must be positive, got %d", c.MaxContentLength)
	}
	if c.MessageTTL < 0 {
		return fmt.Errorf("MESSAGE_TTL must not be negative, got %s", c.MessageTTL)
	}
	intervals := []struct {
		key   string
		value time.Duration
	}{
		{"SWEEP_INTERVAL", c.SweepInterval},
		{"METRIC_INTERVAL", c.MetricInterval},
		{"BADGER_GC_INTERVAL", c.BadgerGCInterval},
		{"RESTART_INTERVAL", c.RestartInterval},
		{"SHUTDOWN_TIMEOUT", c.ShutdownTimeout},
	}
	for _, interval := range intervals {
		if interval.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", interval.key, interval.value)
		}
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Location resolves TIMEZONE, used to format message timestamps.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DefaultCLIAgents is used when CLI_AGENTS is unset. It lives here because
// env tags cannot carry a comma in their default.
var DefaultCLIAgents = []string{"curl", "wget", "httpie", "xh", "termsg"}

func (c Config) CLIAgentList() []string {
	if agents := SplitList(c.CLIAgents); len(agents) > 0 {
		return agents
	}
	return DefaultCLIAgents
}

func (c Config) CensoredWordList() []string {
	return SplitList(c.CensoredWords)
}

// SplitList splits a comma separated value, dropping blank entries.
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CENSOR_CHARACTER must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
