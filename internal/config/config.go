// Package config loads the combiner settings from an optional TOML file and
// FINTRACK_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dvloznov/finance-combiner/internal/merge"
	"github.com/spf13/viper"
)

// EnvConfigFile names the environment variable holding the config file path.
const EnvConfigFile = "FINTRACK_CONFIG"

// Config holds application configuration.
type Config struct {
	BankPath           string `mapstructure:"bank_path"`
	CreditCardPath     string `mapstructure:"credit_card_path"`
	PaymentServicePath string `mapstructure:"payment_service_path"`

	// HistoryPath is the consolidated history read at the start of a merge.
	HistoryPath string `mapstructure:"history_path"`
	// OutputPath receives the new history. Empty means HistoryPath.
	OutputPath      string `mapstructure:"output_path"`
	InterchangePath string `mapstructure:"interchange_path"`
	BreakdownPath   string `mapstructure:"breakdown_path"`
	MonthlyPath     string `mapstructure:"monthly_path"`

	Include     []string      `mapstructure:"include"`
	Shared      []string      `mapstructure:"shared"`
	MergePolicy string        `mapstructure:"merge_policy"`
	SampleSize  int           `mapstructure:"sample_size"`
	Timeout     time.Duration `mapstructure:"timeout"`

	Log        LogConfig        `mapstructure:"log"`
	GCP        GCPConfig        `mapstructure:"gcp"`
	BigQuery   BigQueryConfig   `mapstructure:"bigquery"`
	Categorize CategorizeConfig `mapstructure:"categorize"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// GCPConfig holds Google Cloud settings shared by storage and BigQuery.
type GCPConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// BigQueryConfig controls the optional history export.
type BigQueryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dataset string `mapstructure:"dataset"`
	Table   string `mapstructure:"table"`
}

// CategorizeConfig controls category enrichment of uncategorized records.
type CategorizeConfig struct {
	Rules  []Rule       `mapstructure:"rules"`
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// Rule assigns Category when any keyword occurs in counterparty or description.
type Rule struct {
	Category string   `mapstructure:"category"`
	Keywords []string `mapstructure:"keywords"`
}

// GeminiConfig holds model settings for the categorizer fallback.
type GeminiConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Model      string   `mapstructure:"model"`
	Categories []string `mapstructure:"categories"`
}

// Load reads configuration from file and env. An explicit path wins over
// FINTRACK_CONFIG; without either no file is read. Env var overrides use
// prefix FINTRACK_, e.g. FINTRACK_BIGQUERY_DATASET.
func Load(path string) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("bank_path", "")
	v.SetDefault("credit_card_path", "")
	v.SetDefault("payment_service_path", "")
	v.SetDefault("history_path", "merged_transactions.csv")
	v.SetDefault("output_path", "")
	v.SetDefault("interchange_path", "combined_transactions.csv")
	v.SetDefault("breakdown_path", "monthly_breakdown.csv")
	v.SetDefault("monthly_path", "monthly_totals.csv")
	v.SetDefault("include", []string{"Lebensmittel", "Internet", "Strom", "Wasser", "Bildung", "Transport"})
	v.SetDefault("shared", []string{"Strom", "Wasser", "Internet"})
	v.SetDefault("merge_policy", "history_wins")
	v.SetDefault("sample_size", 10000)
	v.SetDefault("timeout", 5*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.credentials_file", "")
	v.SetDefault("bigquery.enabled", false)
	v.SetDefault("bigquery.dataset", "finance")
	v.SetDefault("bigquery.table", "transactions_history")
	v.SetDefault("categorize.gemini.enabled", false)
	v.SetDefault("categorize.gemini.model", "gemini-2.5-flash")
	v.SetDefault("categorize.gemini.categories", []string{})

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	v.SetEnvPrefix("FINTRACK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.OutputPath == "" {
		c.OutputPath = c.HistoryPath
	}
	return c, nil
}

// Validate checks the settings needed by a full run.
func (c Config) Validate() error {
	var errs []error
	if c.BankPath == "" {
		errs = append(errs, errors.New("bank_path is required"))
	}
	if c.CreditCardPath == "" {
		errs = append(errs, errors.New("credit_card_path is required"))
	}
	if err := c.ValidateMerge(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateMerge checks the settings needed to merge into the history.
func (c Config) ValidateMerge() error {
	var errs []error
	if c.HistoryPath == "" {
		errs = append(errs, errors.New("history_path is required"))
	}
	if _, err := merge.ParsePolicy(c.MergePolicy); err != nil {
		errs = append(errs, err)
	}
	if c.BigQuery.Enabled && (c.GCP.ProjectID == "" || c.BigQuery.Dataset == "" || c.BigQuery.Table == "") {
		errs = append(errs, errors.New("bigquery export needs gcp.project_id, bigquery.dataset and bigquery.table"))
	}
	if c.Categorize.Gemini.Enabled && len(c.Categorize.Gemini.Categories) == 0 {
		errs = append(errs, errors.New("categorize.gemini needs a categories list"))
	}
	return errors.Join(errs...)
}
