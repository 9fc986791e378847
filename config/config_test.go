package config

import "testing"

func TestDefaultHasSaneValues(t *testing.T) {
	cfg := Default()
	if cfg.Format != "pretty" {
		t.Fatalf("expected pretty default format, got %q", cfg.Format)
	}
	if cfg.DefaultFrameBudget <= 0 {
		t.Fatalf("expected a positive default frame budget")
	}
	if cfg.MemoryPageCacheEntries <= 0 {
		t.Fatalf("expected a positive default page cache size")
	}
}

func TestMergeEnvOverridesLogging(t *testing.T) {
	t.Setenv("FERROS_LOG", "breakpoints=debug,info")
	t.Setenv("FERROS_LOG_FORMAT", "json")
	t.Setenv("FERROS_LOG_FILE", "/tmp/ferros-test")

	cfg := mergeEnv(Default())
	if cfg.LevelFilter != "breakpoints=debug,info" {
		t.Fatalf("expected env override of level filter, got %q", cfg.LevelFilter)
	}
	if cfg.Format != "json" {
		t.Fatalf("expected env override of format, got %q", cfg.Format)
	}
	if cfg.LogFile != "/tmp/ferros-test" {
		t.Fatalf("expected env override of log file, got %q", cfg.LogFile)
	}
}

func TestMergeFileOnlyOverridesNonZeroFields(t *testing.T) {
	base := Default()
	fileCfg := Config{DefaultFrameBudget: 128}

	merged := mergeFile(base, fileCfg)
	if merged.DefaultFrameBudget != 128 {
		t.Fatalf("expected file override to take effect, got %d", merged.DefaultFrameBudget)
	}
	if merged.Format != base.Format {
		t.Fatalf("expected untouched fields to keep base value, got %q", merged.Format)
	}
}
