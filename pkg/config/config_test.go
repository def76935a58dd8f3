package config

import "testing"

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("Default() should validate cleanly: %v", err)
	}
}

func TestValidateRejectsZeroBlockSize(t *testing.T) {
	cfg := Default()
	cfg.Arena.BlockSizeBytes = 0
	if err := Validate(&cfg); err == nil {
		t.Fatal("expected validation error for zero block size")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logger.Level = "VERBOSE"
	if err := Validate(&cfg); err == nil {
		t.Fatal("expected validation error for unknown log level")
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load("/nonexistent/path/to/config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load(missing) = %+v, want Default()", cfg)
	}
}
