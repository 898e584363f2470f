package config

import (
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-vessels/models"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty endpoint", mutate: func(c *Config) { c.EndpointURL = "" }},
		{name: "endpoint without host", mutate: func(c *Config) { c.EndpointURL = "/xml/PSIXData.asmx" }},
		{name: "empty data dir", mutate: func(c *Config) { c.DataDir = "" }},
		{name: "empty state file", mutate: func(c *Config) { c.StateFile = "" }},
		{name: "no categories", mutate: func(c *Config) { c.Categories = nil }},
		{name: "summary category", mutate: func(c *Config) { c.Categories = []models.Category{models.CategorySummary} }},
		{name: "negative batch size", mutate: func(c *Config) { c.BatchSize = -1 }},
		{name: "negative target", mutate: func(c *Config) { c.TargetCount = -1 }},
		{name: "negative retries", mutate: func(c *Config) { c.Retries = -1 }},
		{name: "zero parallelism", mutate: func(c *Config) { c.Parallelism = 0 }},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }},
		{name: "negative delay", mutate: func(c *Config) { c.Delay = -time.Second }},
		{name: "backoff above max", mutate: func(c *Config) {
			c.FailureBackoff = time.Minute
			c.FailureBackoffMax = time.Second
		}},
		{name: "empty user agent", mutate: func(c *Config) { c.UserAgent = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() = nil, want error")
			}
		})
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("SCRAPER_TEST_INT", "42")
	value, ok, err := EnvInt("SCRAPER_TEST_INT")
	if err != nil || !ok || value != 42 {
		t.Fatalf("EnvInt = (%d, %v, %v), want (42, true, nil)", value, ok, err)
	}

	t.Setenv("SCRAPER_TEST_INT", "not a number")
	if _, _, err := EnvInt("SCRAPER_TEST_INT"); err == nil {
		t.Fatalf("EnvInt should fail on a non-numeric value")
	}

	if _, ok, err := EnvInt("SCRAPER_TEST_INT_UNSET"); ok || err != nil {
		t.Fatalf("EnvInt on unset var = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}

func TestEnvString(t *testing.T) {
	t.Setenv("SCRAPER_TEST_STR", "compiledData")
	if value, ok := EnvString("SCRAPER_TEST_STR"); !ok || value != "compiledData" {
		t.Fatalf("EnvString = (%q, %v), want (\"compiledData\", true)", value, ok)
	}
	if _, ok := EnvString("SCRAPER_TEST_STR_UNSET"); ok {
		t.Fatalf("EnvString on unset var should report ok=false")
	}
}
