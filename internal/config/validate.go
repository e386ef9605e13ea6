package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings a command mode depends on. Modes are
// "analyze", "store" (commands that persist or read imports) and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "analyze":
	case "store":
		errs = append(errs, c.validateStore()...)
	case "serve":
		errs = append(errs, c.validateStore()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimit <= 0 {
			errs = append(errs, "server.rate_limit must be > 0")
		}
		if c.Server.RateBurst < 1 {
			errs = append(errs, "server.rate_burst must be >= 1")
		}
		if c.Server.MaxUploadMB < 1 {
			errs = append(errs, "server.max_upload_mb must be >= 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	errs = append(errs, c.validateBudget()...)
	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Store.MaxAttempts < 1 {
		errs = append(errs, "store.max_attempts must be at least 1")
	}
	return errs
}

func (c *Config) validateBudget() []string {
	var errs []string
	b := c.Budget
	if b.HeaderScanDepth < 1 {
		errs = append(errs, "budget.header_scan_depth must be >= 1")
	}
	if b.MinSimilarity <= 0 || b.MinSimilarity > 1 {
		errs = append(errs, "budget.min_similarity must be in (0, 1]")
	}
	if b.Parallelism < 1 || b.Parallelism > 64 {
		errs = append(errs, "budget.parallelism must be between 1 and 64")
	}
	if b.Layout.BlockSize < 2 {
		errs = append(errs, "budget.layout.block_size must be >= 2")
	}
	cols := []struct {
		name string
		col  int
	}{
		{"number_col", b.Layout.NumberCol},
		{"name_col", b.Layout.NameCol},
		{"label_col", b.Layout.LabelCol},
		{"manhours_col", b.Layout.ManhoursCol},
		{"value_col", b.Layout.ValueCol},
	}
	for _, col := range cols {
		if col.col < 0 {
			errs = append(errs, fmt.Sprintf("budget.layout.%s must be >= 0", col.name))
		}
	}
	return errs
}
