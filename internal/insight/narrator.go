package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
	"github.com/iwvelando/bigmac-dashboard/pkg/validation"
	"go.uber.org/zap"
)

// Kind names the analysis a request asks for.
type Kind string

const (
	KindMetrics      Kind = "metrics"
	KindTrend        Kind = "trend"
	KindChangePoints Kind = "changepoints"
	KindReport       Kind = "report"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindMetrics, KindTrend, KindChangePoints, KindReport}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == strings.ToLower(strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Request is one narrative request. Prompt is sent to remote narrators;
// Summary and Trend feed the offline narrator.
type Request struct {
	Kind    Kind
	Prompt  string
	Summary *reconcile.Summary
	Trend   *Trend
}

// Narrator produces narrative text for a request.
type Narrator interface {
	Submit(ctx context.Context, req Request) (string, error)
}

// Config selects and configures the narrator.
type Config struct {
	Provider    string        `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=deepseek mock auto"`
	BaseURL     string        `mapstructure:"baseURL" yaml:"baseURL" validate:"omitempty,url"`
	Model       string        `mapstructure:"model" yaml:"model"`
	Temperature *float64      `mapstructure:"temperature" yaml:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"maxTokens" yaml:"maxTokens" validate:"gte=0"`
	APIKey      string        `mapstructure:"apiKey" yaml:"apiKey"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
	EventsFile  string        `mapstructure:"eventsFile" yaml:"eventsFile"`
}

// WithDefaults fills unset fields with the DeepSeek defaults. An explicit
// temperature of zero is kept.
func (c Config) WithDefaults() Config {
	if c.Provider == "" {
		c.Provider = constants.ProviderAuto
	}
	if c.BaseURL == "" {
		c.BaseURL = constants.DefaultChatBaseURL
	}
	if c.Model == "" {
		c.Model = constants.DefaultChatModel
	}
	if c.Temperature == nil {
		t := constants.DefaultChatTemperature
		c.Temperature = &t
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = constants.DefaultChatMaxTokens
	}
	return c
}

// NewNarrator builds the narrator named by cfg.Provider. "auto" picks the
// remote client when an API key is configured and the mock otherwise.
func NewNarrator(cfg Config, logger *zap.Logger) (Narrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.WithDefaults()
	if err := validation.ValidateProvider(cfg.Provider); err != nil {
		return nil, err
	}

	provider := cfg.Provider
	if provider == constants.ProviderAuto {
		provider = constants.ProviderMock
		if strings.TrimSpace(cfg.APIKey) != "" {
			provider = constants.ProviderDeepSeek
		}
	}

	switch provider {
	case constants.ProviderDeepSeek:
		logger.Info("using remote narrator",
			zap.String("op", "insight.NewNarrator"),
			zap.String("baseURL", cfg.BaseURL),
			zap.String("model", cfg.Model),
		)
		return NewChatClient(cfg, logger), nil
	case constants.ProviderMock:
		logger.Info("using offline narrator",
			zap.String("op", "insight.NewNarrator"),
			zap.String("provider", cfg.Provider),
		)
		return NewMockNarrator(), nil
	}
	return nil, fmt.Errorf("unknown insight provider %q", cfg.Provider)
}
