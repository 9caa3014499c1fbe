package faultnet

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// TestConfigDefaults tests that an option-less config carries the default
// duplication bounds and a usable logger.
func TestConfigDefaults(t *testing.T) {
	cfg, err := NewConfig[string]()
	if err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	if cfg.MinCopies != DefaultMinCopies || cfg.MaxCopies != DefaultMaxCopies {
		t.Errorf("Default copies should be %d..%d, got %d..%d",
			DefaultMinCopies, DefaultMaxCopies, cfg.MinCopies, cfg.MaxCopies)
	}

	if cfg.Logger == nil {
		t.Error("Logger should default to a no-op logger")
	}

	if cfg.Clone != nil {
		t.Error("Clone should be nil by default")
	}
}

// TestConfigValidation tests that invalid options are rejected.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option[string]
		wantErr string
	}{
		{
			name:    "ZeroMinCopies",
			opts:    []Option[string]{WithCopies[string](0, 2)},
			wantErr: "min copies must be >= 1",
		},
		{
			name:    "MaxBelowMin",
			opts:    []Option[string]{WithCopies[string](3, 2)},
			wantErr: "max copies (2) must be >= min copies (3)",
		},
		{
			name:    "NilLogger",
			opts:    []Option[string]{WithLogger[string](nil)},
			wantErr: "logger cannot be nil",
		},
		{
			name:    "NilCloner",
			opts:    []Option[string]{WithCloner[string](nil)},
			wantErr: "cloner cannot be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.opts...)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !errors.Is(err, ErrConfig) {
				t.Errorf("Expected ErrConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

// TestConfigOptions tests that options are applied.
func TestConfigOptions(t *testing.T) {
	logger := zap.NewExample()
	upper := func(s string) string { return strings.ToUpper(s) }

	cfg, err := NewConfig(
		WithCopies[string](2, 5),
		WithLogger[string](logger),
		WithCloner(upper),
	)
	if err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	if cfg.MinCopies != 2 || cfg.MaxCopies != 5 {
		t.Errorf("Copies should be 2..5, got %d..%d", cfg.MinCopies, cfg.MaxCopies)
	}

	if cfg.Logger != logger {
		t.Error("Logger option not applied")
	}

	if got := cfg.Clone("abc"); got != "ABC" {
		t.Errorf("Clone should be applied, got %q", got)
	}
}
