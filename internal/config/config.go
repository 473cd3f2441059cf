// Package config defines the data structures related to configuration and
// includes functions for loading, defaulting and validating the config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/iwvelando/bigmac-dashboard/internal/insight"
	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for bigmac-dashboard.
type Configuration struct {
	Data     DataConfig     `mapstructure:"data" yaml:"data"`
	Rates    RatesConfig    `mapstructure:"rates" yaml:"rates,omitempty"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis,omitempty"`
	Insight  insight.Config `mapstructure:"insight" yaml:"insight,omitempty"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging,omitempty"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" yaml:"format,omitempty" validate:"omitempty,oneof=json console"`
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty" validate:"omitempty,oneof=pretty csv"`
	// ExportPath, when set, receives the xlsx workbook of a one-shot run.
	ExportPath string `mapstructure:"exportPath" yaml:"exportPath,omitempty"`
}

// DataConfig names the input files of a one-shot run.
type DataConfig struct {
	PricePath string `mapstructure:"pricePath" yaml:"pricePath"`
	RatePath  string `mapstructure:"ratePath" yaml:"ratePath"`
	Country   string `mapstructure:"country" yaml:"country" validate:"omitempty,len=3,alpha"`
}

// RatesConfig controls rate-table interpretation.
type RatesConfig struct {
	Unit    string                `mapstructure:"unit" yaml:"unit,omitempty" validate:"omitempty,oneof=per-1 per-100 auto-detect"`
	Columns reconcile.ColumnRules `mapstructure:"columns" yaml:"columns,omitempty"`
}

// AnalysisConfig holds the analysis parameters.
type AnalysisConfig struct {
	From                string  `mapstructure:"from" yaml:"from,omitempty"`
	To                  string  `mapstructure:"to" yaml:"to,omitempty"`
	Percentile          float64 `mapstructure:"percentile" yaml:"percentile,omitempty" validate:"gte=0,lt=100"`
	PolicyImpactDays    int     `mapstructure:"policyImpactDays" yaml:"policyImpactDays,omitempty" validate:"gte=0"`
	MovingAverageWindow int     `mapstructure:"movingAverageWindow" yaml:"movingAverageWindow,omitempty" validate:"gte=0"`
}

// ErrMissingData reports a one-shot run without input paths.
var ErrMissingData = errors.New("data.pricePath and data.ratePath are required")

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. DEEPSEEK_API_KEY in the environment overrides
// insight.apiKey. Defaults are applied and the result is validated.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.AutomaticEnv()
	if err := v.BindEnv("insight.apiKey", constants.APIKeyEnvVar); err != nil {
		return nil, fmt.Errorf("unable to bind %s: %w", constants.APIKeyEnvVar, err)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	configuration.ApplyDefaults()
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Default returns a configuration with every default applied and no input
// paths. The API key is taken from the environment.
func Default() *Configuration {
	conf := &Configuration{}
	conf.Insight.APIKey = os.Getenv(constants.APIKeyEnvVar)
	conf.ApplyDefaults()
	return conf
}

// ApplyDefaults fills unset fields.
func (conf *Configuration) ApplyDefaults() {
	if conf.Data.Country == "" {
		conf.Data.Country = constants.DefaultCountry
	}
	conf.Data.Country = strings.ToUpper(conf.Data.Country)
	if conf.Rates.Unit == "" {
		conf.Rates.Unit = constants.RateUnitAutoDetect
	}
	if conf.Analysis.Percentile == 0 {
		conf.Analysis.Percentile = constants.DefaultChangePointPercentile
	}
	if conf.Analysis.PolicyImpactDays == 0 {
		conf.Analysis.PolicyImpactDays = constants.PolicyImpactDays
	}
	if conf.Analysis.MovingAverageWindow == 0 {
		conf.Analysis.MovingAverageWindow = constants.DefaultMovingAverageWindow
	}
	if conf.Output.Format == "" {
		conf.Output.Format = constants.OutputFormatPretty
	}
	conf.Insight = conf.Insight.WithDefaults()
}

// Validate checks field constraints and the analysis window.
func (conf *Configuration) Validate() error {
	if err := validator.New().Struct(conf); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	from, to, err := conf.Window()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("invalid configuration: analysis.to %s is before analysis.from %s",
			conf.Analysis.To, conf.Analysis.From)
	}
	return nil
}

// RequireData reports ErrMissingData when either input path is unset.
func (conf *Configuration) RequireData() error {
	if strings.TrimSpace(conf.Data.PricePath) == "" || strings.TrimSpace(conf.Data.RatePath) == "" {
		return ErrMissingData
	}
	return nil
}

// Window parses the optional analysis window. Unset bounds are zero.
func (conf *Configuration) Window() (from, to time.Time, err error) {
	if conf.Analysis.From != "" {
		if from, err = datetime.ParseDate(conf.Analysis.From); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid analysis.from: %w", err)
		}
	}
	if conf.Analysis.To != "" {
		if to, err = datetime.ParseDate(conf.Analysis.To); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid analysis.to: %w", err)
		}
	}
	return from, to, nil
}

// RateOptions converts the rates section for reconcile.LoadRateSeries.
func (conf *Configuration) RateOptions() reconcile.RateOptions {
	return reconcile.RateOptions{
		Unit:    reconcile.RateUnit(conf.Rates.Unit),
		Columns: conf.Rates.Columns,
	}
}

// ValidateConfiguration returns warnings for settings that load but are
// likely mistakes.
func (conf *Configuration) ValidateConfiguration() []string {
	var warnings []string

	for _, p := range []struct{ key, path string }{
		{"data.pricePath", conf.Data.PricePath},
		{"data.ratePath", conf.Data.RatePath},
		{"insight.eventsFile", conf.Insight.EventsFile},
	} {
		if p.path == "" {
			continue
		}
		if _, err := os.Stat(p.path); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s %q is not readable: %v", p.key, p.path, err))
		}
	}

	if conf.Insight.Provider == constants.ProviderDeepSeek && strings.TrimSpace(conf.Insight.APIKey) == "" {
		warnings = append(warnings, fmt.Sprintf(
			"insight.provider is %s but no API key is set; narrative requests will fail (set %s)",
			constants.ProviderDeepSeek, constants.APIKeyEnvVar))
	}

	if conf.Analysis.Percentile > 0 && conf.Analysis.Percentile < 50 {
		warnings = append(warnings, fmt.Sprintf(
			"analysis.percentile %v flags more than half of all moves as change points", conf.Analysis.Percentile))
	}

	if conf.Rates.Unit == constants.RateUnitAutoDetect {
		for _, rule := range conf.Rates.Columns.Rate {
			if strings.Contains(rule.Token, "100") {
				return append(warnings, fmt.Sprintf(
					"rates.columns.rate token %q mentions 100; set rates.unit explicitly to avoid guessing", rule.Token))
			}
		}
	}

	return warnings
}
