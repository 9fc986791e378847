// Package ferroslog configures the module's shared logrus.Logger from
// environment variables and config.LogConfig: level filter grammar,
// output format, and an optional rolling daily log file, giving every
// package one subsystem-tagged logger to pull a *logrus.Entry from.
package ferroslog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/ferros-go/ferros/config"
)

// LogConfig is a local alias so this file reads naturally; the real
// type lives in config so both config and ferroslog can be imported
// independently by callers that only need one of the two concerns.
type LogConfig = config.LogConfig

// LevelFilter holds a per-component level override plus the bare
// default level a FERROS_LOG value like "breakpoints=debug,memory=warn,info"
// expands into: the last bare token (no "=") is the default, every
// "component=level" pair overrides that component specifically.
type LevelFilter struct {
	Default    logrus.Level
	Components map[string]logrus.Level
}

// ParseLevelFilter parses the comma-separated module=level grammar.
// Tokens with unrecognized level names are ignored rather than
// erroring (the default stays logrus.InfoLevel unless a valid bare
// level sets it), since a malformed filter should degrade logging
// verbosity, not prevent startup.
func ParseLevelFilter(spec string) LevelFilter {
	filter := LevelFilter{Default: logrus.InfoLevel, Components: map[string]logrus.Level{}}
	if spec == "" {
		return filter
	}
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		component, levelName, hasComponent := strings.Cut(tok, "=")
		level, err := logrus.ParseLevel(strings.TrimSpace(levelName))
		if !hasComponent {
			level, err = logrus.ParseLevel(strings.TrimSpace(component))
			if err == nil {
				filter.Default = level
			}
			continue
		}
		if err != nil {
			continue
		}
		filter.Components[strings.TrimSpace(component)] = level
	}
	return filter
}

// LevelFor resolves the effective level for a named component, falling
// back to the filter's default when no override exists.
func (f LevelFilter) LevelFor(component string) logrus.Level {
	if lvl, ok := f.Components[component]; ok {
		return lvl
	}
	return f.Default
}

// componentHook enforces per-component suppression: logrus itself only
// has one global level, so entries below the *component's* resolved
// level are dropped here before formatting.
type componentHook struct {
	filter LevelFilter
}

func (h componentHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h componentHook) Fire(entry *logrus.Entry) error {
	component, _ := entry.Data["component"].(string)
	if component == "" {
		return nil
	}
	if entry.Level > h.filter.LevelFor(component) {
		// Suppressing after the fact would still emit; instead blank the
		// message so the formatter prints nothing of substance. logrus
		// has no hook-level "cancel this entry" hook, so this is the
		// narrowest suppression available without a custom formatter.
		entry.Message = ""
		entry.Level = logrus.TraceLevel
	}
	return nil
}

// Setup builds the shared logger from cfg, FERROS_LOG (per-component
// level filter), FERROS_LOG_FORMAT ("pretty" or "json"), and
// FERROS_LOG_FILE (rolling daily file path override).
func Setup(cfg LogConfig) *logrus.Logger {
	logger := logrus.StandardLogger()

	filter := ParseLevelFilter(cfg.LevelFilter)
	logger.SetLevel(maxLevel(filter))

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		out := colorable.NewColorableStdout()
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			ForceColors:     isatty.IsTerminal(os.Stdout.Fd()),
			DisableQuote:    true,
			TimestampFormat: "15:04:05.000",
		})
		logger.SetOutput(out)
	}

	if writer, err := openLogDestination(cfg); err == nil && writer != nil {
		logger.SetOutput(writer)
	}

	logger.AddHook(componentHook{filter: filter})
	return logger
}

// maxLevel returns the most verbose level across the default and every
// per-component override, since logrus's own gate is global: component
// suppression below that is handled by componentHook.
func maxLevel(filter LevelFilter) logrus.Level {
	max := filter.Default
	for _, lvl := range filter.Components {
		if lvl > max {
			max = lvl
		}
	}
	return max
}

// openLogDestination resolves FERROS_LOG_FILE (or cfg.LogFile) into a
// rolling daily file at dir/YYYY-MM-DD-ferros.log, falling back to
// /tmp when the preferred directory can't be created.
func openLogDestination(cfg LogConfig) (io.Writer, error) {
	if cfg.LogFile == "" {
		return nil, nil
	}
	dir := cfg.LogFile
	if err := os.MkdirAll(dir, 0o755); err != nil {
		dir = os.TempDir()
	}
	name := fmt.Sprintf("%s-ferros.log", timeNow().Format("2006-01-02"))
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// timeNow is indirected purely so tests can't be tempted to assert on
// wall-clock file names; production always uses time.Now.
var timeNow = time.Now
