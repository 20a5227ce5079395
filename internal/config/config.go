// Package config loads the process configuration from TICKR_* environment
// variables (optionally seeded from a .env file) and the ingest job list from
// a YAML file.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/syncsoftco/tickr/internal/domain"
)

type Config struct {
	// DataDir is the shard root inside the content store.
	DataDir string `env:"TICKR_DATA_DIR" envDefault:"data"`

	// LocalDir roots the local content store; ignored when GitHubRepo is set.
	LocalDir string `env:"TICKR_LOCAL_DIR" envDefault:"."`

	// GitHubRepo selects the GitHub content store, as owner/name.
	GitHubRepo   string `env:"TICKR_GITHUB_REPO"`
	GitHubBranch string `env:"TICKR_GITHUB_BRANCH"`
	GitHubToken  string `env:"TICKR_GITHUB_TOKEN"`

	BinanceURL string `env:"TICKR_BINANCE_URL" envDefault:"https://api.binance.com"`

	// JobsFile is the YAML job list; Symbols/Timeframes override it when set.
	JobsFile   string   `env:"TICKR_JOBS_FILE" envDefault:"jobs.yaml"`
	Symbols    []string `env:"TICKR_SYMBOLS" envSeparator:","`
	Timeframes []string `env:"TICKR_TIMEFRAMES" envSeparator:","`

	// Schedule is a cron expression; empty means a single one-shot run.
	Schedule      string `env:"TICKR_SCHEDULE"`
	ListenAddress string `env:"TICKR_ADDR" envDefault:":9090"`

	// SQLitePath enables the run journal when set.
	SQLitePath string `env:"TICKR_SQLITE_PATH"`

	PageLimit int   `env:"TICKR_PAGE_LIMIT"`
	SinceMs   int64 `env:"TICKR_SINCE_MS"`
}

func Load() (Config, error) {
	// Ignore error if .env is missing
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Job is one symbol/timeframe ingest target.
type Job struct {
	Symbol    string
	Timeframe domain.Timeframe
}

type jobsFile struct {
	Jobs []struct {
		Symbol     string   `yaml:"symbol"`
		Timeframes []string `yaml:"timeframes"`
	} `yaml:"jobs"`
}

// LoadJobs resolves the ingest job list: the Symbols/Timeframes environment
// pair wins when both are set, then the YAML jobs file, then a BTC/USDT
// one-minute default.
func LoadJobs(cfg Config) ([]Job, error) {
	if len(cfg.Symbols) > 0 && len(cfg.Timeframes) > 0 {
		return crossJobs(cfg.Symbols, cfg.Timeframes)
	}

	data, err := os.ReadFile(cfg.JobsFile)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read jobs file: %w", err)
	}
	if len(data) > 0 {
		var jf jobsFile
		if err := yaml.Unmarshal(data, &jf); err != nil {
			return nil, fmt.Errorf("failed to parse jobs file: %w", err)
		}
		var jobs []Job
		for _, j := range jf.Jobs {
			expanded, err := crossJobs([]string{j.Symbol}, j.Timeframes)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, expanded...)
		}
		if len(jobs) > 0 {
			return jobs, nil
		}
	}

	return []Job{{Symbol: "BTC/USDT", Timeframe: domain.Timeframe1m}}, nil
}

func crossJobs(symbols, timeframes []string) ([]Job, error) {
	var jobs []Job
	for _, sym := range symbols {
		if sym == "" {
			return nil, fmt.Errorf("%w: job symbol is empty", domain.ErrValidation)
		}
		for _, name := range timeframes {
			tf, err := domain.ParseTimeframe(name)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, Job{Symbol: sym, Timeframe: tf})
		}
	}
	return jobs, nil
}
