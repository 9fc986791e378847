package ferroslog

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevelFilterBareDefault(t *testing.T) {
	f := ParseLevelFilter("debug")
	if f.Default != logrus.DebugLevel {
		t.Fatalf("expected bare token to set default level, got %v", f.Default)
	}
	if len(f.Components) != 0 {
		t.Fatalf("expected no component overrides, got %v", f.Components)
	}
}

func TestParseLevelFilterComponentOverrides(t *testing.T) {
	f := ParseLevelFilter("breakpoints=debug,memory=warn,info")
	if f.Default != logrus.InfoLevel {
		t.Fatalf("expected default info level, got %v", f.Default)
	}
	if f.LevelFor("breakpoints") != logrus.DebugLevel {
		t.Fatalf("expected breakpoints=debug override")
	}
	if f.LevelFor("memory") != logrus.WarnLevel {
		t.Fatalf("expected memory=warn override")
	}
	if f.LevelFor("unwind") != logrus.InfoLevel {
		t.Fatalf("expected unwind to fall back to default")
	}
}

func TestParseLevelFilterEmptyIsInfoDefault(t *testing.T) {
	f := ParseLevelFilter("")
	if f.Default != logrus.InfoLevel {
		t.Fatalf("expected info default for empty filter, got %v", f.Default)
	}
}

func TestSetupReturnsUsableLogger(t *testing.T) {
	logger := Setup(LogConfig{Format: "json"})
	if logger == nil {
		t.Fatal("expected a non-nil logger")
	}
	entry := logger.WithField("component", "breakpoints")
	entry.Info("test message")
}
