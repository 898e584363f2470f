package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/aluiziolira/go-scrape-vessels/models"
)

// Config holds scraper configuration.
type Config struct {
	EndpointURL string
	MethodsFile string // optional JSON override for SOAP method templates
	DataDir     string
	StateFile   string

	Categories  []models.Category
	BatchSize   int // ids per batch; the checkpoint granularity
	TargetCount int // ids to process per invocation, 0 means all remaining
	Retries     int // retry passes over failed ids after the initial scrape

	Parallelism       int
	Timeout           time.Duration
	Delay             time.Duration
	FailureBackoff    time.Duration // first wait after a whole-batch failure
	FailureBackoffMax time.Duration

	UserAgent   string
	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns the defaults for the CGMIX PSIX endpoint.
func DefaultConfig() *Config {
	return &Config{
		EndpointURL:       "https://cgmix.uscg.mil/xml/PSIXData.asmx",
		DataDir:           "compiledData",
		StateFile:         "cachedMetaData.json",
		Categories:        []models.Category{models.CategoryDimensions, models.CategoryParticulars, models.CategoryTonnage},
		BatchSize:         100000,
		TargetCount:       0,
		Retries:           2,
		Parallelism:       64,
		Timeout:           30 * time.Second,
		Delay:             0,
		FailureBackoff:    5 * time.Second,
		FailureBackoffMax: time.Minute,
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		MetricsAddr:       "",
		Verbose:           false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.EndpointURL == "" {
		return fmt.Errorf("endpoint URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.EndpointURL)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("endpoint URL must include a host")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	if c.StateFile == "" {
		return fmt.Errorf("state file cannot be empty")
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	for _, cat := range c.Categories {
		if cat == models.CategorySummary {
			return fmt.Errorf("summary is the id source and cannot be scraped")
		}
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size cannot be negative")
	}
	if c.TargetCount < 0 {
		return fmt.Errorf("target count cannot be negative")
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries cannot be negative")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.FailureBackoff < 0 {
		return fmt.Errorf("failure backoff cannot be negative")
	}
	if c.FailureBackoffMax < 0 {
		return fmt.Errorf("failure backoff max cannot be negative")
	}
	if c.FailureBackoffMax > 0 && c.FailureBackoff > c.FailureBackoffMax {
		return fmt.Errorf("failure backoff (%s) cannot exceed failure backoff max (%s)", c.FailureBackoff, c.FailureBackoffMax)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// EnvInt reads an integer environment override. The second return reports
// whether the variable was set.
func EnvInt(name string) (int, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", name, err)
	}
	return value, true, nil
}

// EnvString reads a string environment override.
func EnvString(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}
