package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// envOverride binds FIBSUM_<key> to the flags it stands in for. Values that
// fail to parse leave the field untouched.
type envOverride struct {
	key   string
	flags []string
	set   func(*AppConfig, string)
}

func intEnv(field func(*AppConfig) *int) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			*field(c) = n
		}
	}
}

func durationEnv(field func(*AppConfig) *time.Duration) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		if d, err := time.ParseDuration(v); err == nil {
			*field(c) = d
		}
	}
}

func stringEnv(field func(*AppConfig) *string) func(*AppConfig, string) {
	return func(c *AppConfig, v string) { *field(c) = v }
}

func boolEnv(field func(*AppConfig) *bool) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		p := field(c)
		*p = parseBoolEnv(v, *p)
	}
}

var envOverrides = []envOverride{
	{"N", []string{"n"}, intEnv(func(c *AppConfig) *int { return &c.N })},
	{"WORKERS", []string{"workers"}, intEnv(func(c *AppConfig) *int { return &c.Workers })},
	{"RANK", []string{"rank"}, intEnv(func(c *AppConfig) *int { return &c.Rank })},
	{"REPEAT", []string{"repeat"}, intEnv(func(c *AppConfig) *int { return &c.Repeat })},
	{"TIMEOUT", []string{"timeout"}, durationEnv(func(c *AppConfig) *time.Duration { return &c.Timeout })},
	{"MODE", []string{"mode"}, stringEnv(func(c *AppConfig) *string { return &c.Mode })},
	{"TRANSPORT", []string{"transport"}, stringEnv(func(c *AppConfig) *string { return &c.Transport })},
	{"AMQP_URL", []string{"amqp-url"}, stringEnv(func(c *AppConfig) *string { return &c.AMQPURL })},
	{"RUN_ID", []string{"run-id"}, stringEnv(func(c *AppConfig) *string { return &c.RunID })},
	{"OUTPUT", []string{"output", "o"}, stringEnv(func(c *AppConfig) *string { return &c.OutputFile })},
	{"METRICS_FILE", []string{"metrics-file"}, stringEnv(func(c *AppConfig) *string { return &c.MetricsFile })},
	{"LOG_LEVEL", []string{"log-level"}, stringEnv(func(c *AppConfig) *string { return &c.LogLevel })},
	{"LISTEN", []string{"listen"}, stringEnv(func(c *AppConfig) *string { return &c.Listen })},
	{"VERBOSE", []string{"v", "verbose"}, boolEnv(func(c *AppConfig) *bool { return &c.Verbose })},
	{"DETAILS", []string{"d", "details"}, boolEnv(func(c *AppConfig) *bool { return &c.Details })},
	{"QUIET", []string{"quiet", "q"}, boolEnv(func(c *AppConfig) *bool { return &c.Quiet })},
	{"NO_COLOR", []string{"no-color"}, boolEnv(func(c *AppConfig) *bool { return &c.NoColor })},
	{"CALIBRATE", []string{"calibrate"}, boolEnv(func(c *AppConfig) *bool { return &c.Calibrate })},
	{"TUI", []string{"tui"}, boolEnv(func(c *AppConfig) *bool { return &c.TUI })},
}

// parseBoolEnv accepts true/1/yes and false/0/no, any case. Anything else
// yields fallback.
func parseBoolEnv(val string, fallback bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

// applyEnvOverrides fills every field whose flag was not given on the
// command line from its FIBSUM_ variable, so flags win over the
// environment and the environment wins over defaults.
func applyEnvOverrides(cfg *AppConfig, fs *flag.FlagSet) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	for _, o := range envOverrides {
		if anySet(explicit, o.flags) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.key); val != "" {
			o.set(cfg, val)
		}
	}
}

func anySet(explicit map[string]bool, names []string) bool {
	for _, name := range names {
		if explicit[name] {
			return true
		}
	}
	return false
}
