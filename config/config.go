// Package config builds the pipeline's AgentConfig: explicit builder calls
// take precedence over environment variables, which take precedence over
// the compiled-in defaults below.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/rlm-go/rlmerr"
)

const (
	defaultMaxConcurrency    = 50
	defaultBatchSize         = 10
	defaultSubcallMaxTokens  = 16384
	defaultSynthesizerTokens = 4096
	defaultPrimaryMaxTokens  = 1024
	defaultTimeout           = 120 * time.Second
	defaultMaxRetries        = 3
	defaultMaxToolIterations = 10
	defaultSearchTopK        = 200
	defaultProvider          = "openai"
	defaultSubcallModel      = "gpt-5-mini-2025-08-07"
	defaultSynthesizerModel  = "gpt-5.2-2025-12-11"
	defaultPrimaryModel      = "gpt-5.2-2025-12-11"
)

// AgentConfig holds the resolved configuration for one pipeline instance.
// YAML tags let it double as the schema for an optional on-disk config file
// layered beneath env vars and the builder's explicit values.
type AgentConfig struct {
	Provider             string        `yaml:"provider"`
	APIKey               string        `yaml:"-"`
	BaseURL              string        `yaml:"base_url"`
	SubcallModel         string        `yaml:"subcall_model"`
	SynthesizerModel     string        `yaml:"synthesizer_model"`
	PrimaryModel         string        `yaml:"primary_model"`
	MaxConcurrency       int           `yaml:"max_concurrency"`
	BatchSize            int           `yaml:"batch_size"`
	SubcallMaxTokens     int           `yaml:"subcall_max_tokens"`
	SynthesizerMaxTokens int           `yaml:"synthesizer_max_tokens"`
	PrimaryMaxTokens     int           `yaml:"primary_max_tokens"`
	Timeout              time.Duration `yaml:"timeout"`
	MaxRetries           int           `yaml:"max_retries"`
	MaxToolIterations    int           `yaml:"max_tool_iterations"`
	SearchTopK           int           `yaml:"search_top_k"`
	PromptDir            string        `yaml:"prompt_dir"`
	RequestDelay         time.Duration `yaml:"request_delay"`
}

// Builder accumulates overrides before Build resolves defaults and validates
// the result. The zero Builder is ready to use.
type Builder struct {
	cfg AgentConfig
	set setFlags
}

// setFlags tracks which fields were explicitly set, so FromEnv and defaults
// never clobber an explicit builder call.
type setFlags struct {
	provider, apiKey, baseURL                                bool
	subcallModel, synthesizerModel, primaryModel             bool
	maxConcurrency, batchSize                                bool
	subcallMaxTokens, synthesizerMaxTokens, primaryMaxTokens bool
	timeout, maxRetries, maxToolIterations, searchTopK       bool
	promptDir, requestDelay                                  bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Provider(v string) *Builder         { b.cfg.Provider = v; b.set.provider = true; return b }
func (b *Builder) APIKey(v string) *Builder           { b.cfg.APIKey = v; b.set.apiKey = true; return b }
func (b *Builder) BaseURL(v string) *Builder          { b.cfg.BaseURL = v; b.set.baseURL = true; return b }
func (b *Builder) SubcallModel(v string) *Builder     { b.cfg.SubcallModel = v; b.set.subcallModel = true; return b }
func (b *Builder) SynthesizerModel(v string) *Builder { b.cfg.SynthesizerModel = v; b.set.synthesizerModel = true; return b }
func (b *Builder) PrimaryModel(v string) *Builder     { b.cfg.PrimaryModel = v; b.set.primaryModel = true; return b }
func (b *Builder) MaxConcurrency(n int) *Builder      { b.cfg.MaxConcurrency = n; b.set.maxConcurrency = true; return b }
func (b *Builder) BatchSize(n int) *Builder           { b.cfg.BatchSize = n; b.set.batchSize = true; return b }
func (b *Builder) SubcallMaxTokens(n int) *Builder {
	b.cfg.SubcallMaxTokens = n
	b.set.subcallMaxTokens = true
	return b
}
func (b *Builder) SynthesizerMaxTokens(n int) *Builder {
	b.cfg.SynthesizerMaxTokens = n
	b.set.synthesizerMaxTokens = true
	return b
}
func (b *Builder) PrimaryMaxTokens(n int) *Builder {
	b.cfg.PrimaryMaxTokens = n
	b.set.primaryMaxTokens = true
	return b
}
func (b *Builder) Timeout(d time.Duration) *Builder { b.cfg.Timeout = d; b.set.timeout = true; return b }
func (b *Builder) MaxRetries(n int) *Builder         { b.cfg.MaxRetries = n; b.set.maxRetries = true; return b }
func (b *Builder) MaxToolIterations(n int) *Builder {
	b.cfg.MaxToolIterations = n
	b.set.maxToolIterations = true
	return b
}
func (b *Builder) SearchTopK(n int) *Builder   { b.cfg.SearchTopK = n; b.set.searchTopK = true; return b }
func (b *Builder) PromptDir(v string) *Builder { b.cfg.PromptDir = v; b.set.promptDir = true; return b }
func (b *Builder) RequestDelay(d time.Duration) *Builder {
	b.cfg.RequestDelay = d
	b.set.requestDelay = true
	return b
}

// FromEnv populates any field not already set explicitly from environment
// variables, following the original's RLM_* naming with OPENAI_API_KEY/
// OPENAI_BASE_URL honored ahead of the generic RLM_ fallback.
func (b *Builder) FromEnv() *Builder {
	if !b.set.provider {
		if v, ok := os.LookupEnv("RLM_PROVIDER"); ok {
			b.cfg.Provider = v
		}
	}
	if !b.set.apiKey {
		if v, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			b.cfg.APIKey = v
		} else if v, ok := os.LookupEnv("RLM_API_KEY"); ok {
			b.cfg.APIKey = v
		}
	}
	if !b.set.baseURL {
		if v, ok := os.LookupEnv("OPENAI_BASE_URL"); ok {
			b.cfg.BaseURL = v
		} else if v, ok := os.LookupEnv("RLM_BASE_URL"); ok {
			b.cfg.BaseURL = v
		}
	}
	if !b.set.subcallModel {
		if v, ok := os.LookupEnv("RLM_SUBCALL_MODEL"); ok {
			b.cfg.SubcallModel = v
		}
	}
	if !b.set.synthesizerModel {
		if v, ok := os.LookupEnv("RLM_SYNTHESIZER_MODEL"); ok {
			b.cfg.SynthesizerModel = v
		}
	}
	if !b.set.primaryModel {
		if v, ok := os.LookupEnv("RLM_PRIMARY_MODEL"); ok {
			b.cfg.PrimaryModel = v
		}
	}
	if !b.set.maxConcurrency {
		if n, ok := envInt("RLM_MAX_CONCURRENCY"); ok {
			b.cfg.MaxConcurrency = n
		}
	}
	if !b.set.batchSize {
		if n, ok := envInt("RLM_BATCH_SIZE"); ok {
			b.cfg.BatchSize = n
		}
	}
	if !b.set.searchTopK {
		if n, ok := envInt("RLM_SEARCH_TOP_K"); ok {
			b.cfg.SearchTopK = n
		}
	}
	if !b.set.promptDir {
		if v, ok := os.LookupEnv("RLM_PROMPT_DIR"); ok {
			b.cfg.PromptDir = v
		}
	}
	return b
}

func envInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FromYAML layers values from a YAML document over fields not set by an
// explicit builder call, for every field the document sets to a non-zero
// value. Like FromEnv, it overwrites values applied by an earlier FromEnv
// call, so between the two the later call wins.
func (b *Builder) FromYAML(data []byte) (*Builder, error) {
	var doc AgentConfig
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return b, rlmerr.Wrap(rlmerr.KindOrchestration, "parse config yaml", err)
	}

	if !b.set.provider && doc.Provider != "" {
		b.cfg.Provider = doc.Provider
	}
	if !b.set.baseURL && doc.BaseURL != "" {
		b.cfg.BaseURL = doc.BaseURL
	}
	if !b.set.subcallModel && doc.SubcallModel != "" {
		b.cfg.SubcallModel = doc.SubcallModel
	}
	if !b.set.synthesizerModel && doc.SynthesizerModel != "" {
		b.cfg.SynthesizerModel = doc.SynthesizerModel
	}
	if !b.set.primaryModel && doc.PrimaryModel != "" {
		b.cfg.PrimaryModel = doc.PrimaryModel
	}
	if !b.set.maxConcurrency && doc.MaxConcurrency != 0 {
		b.cfg.MaxConcurrency = doc.MaxConcurrency
	}
	if !b.set.batchSize && doc.BatchSize != 0 {
		b.cfg.BatchSize = doc.BatchSize
	}
	if !b.set.subcallMaxTokens && doc.SubcallMaxTokens != 0 {
		b.cfg.SubcallMaxTokens = doc.SubcallMaxTokens
	}
	if !b.set.synthesizerMaxTokens && doc.SynthesizerMaxTokens != 0 {
		b.cfg.SynthesizerMaxTokens = doc.SynthesizerMaxTokens
	}
	if !b.set.primaryMaxTokens && doc.PrimaryMaxTokens != 0 {
		b.cfg.PrimaryMaxTokens = doc.PrimaryMaxTokens
	}
	if !b.set.timeout && doc.Timeout != 0 {
		b.cfg.Timeout = doc.Timeout
	}
	if !b.set.maxRetries && doc.MaxRetries != 0 {
		b.cfg.MaxRetries = doc.MaxRetries
	}
	if !b.set.maxToolIterations && doc.MaxToolIterations != 0 {
		b.cfg.MaxToolIterations = doc.MaxToolIterations
	}
	if !b.set.searchTopK && doc.SearchTopK != 0 {
		b.cfg.SearchTopK = doc.SearchTopK
	}
	if !b.set.promptDir && doc.PromptDir != "" {
		b.cfg.PromptDir = doc.PromptDir
	}
	if !b.set.requestDelay && doc.RequestDelay != 0 {
		b.cfg.RequestDelay = doc.RequestDelay
	}
	return b, nil
}

// Build resolves defaults for every unset field and validates the result.
// The only required field is APIKey; its absence is the sole validation
// failure, matching the original's contract.
func (b *Builder) Build() (*AgentConfig, error) {
	if b.cfg.APIKey == "" {
		return nil, rlmerr.New(rlmerr.KindAPIKeyMissing, "no API key configured")
	}

	cfg := b.cfg
	if cfg.Provider == "" {
		cfg.Provider = defaultProvider
	}
	if cfg.SubcallModel == "" {
		cfg.SubcallModel = defaultSubcallModel
	}
	if cfg.SynthesizerModel == "" {
		cfg.SynthesizerModel = defaultSynthesizerModel
	}
	if cfg.PrimaryModel == "" {
		cfg.PrimaryModel = defaultPrimaryModel
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.SubcallMaxTokens == 0 {
		cfg.SubcallMaxTokens = defaultSubcallMaxTokens
	}
	if cfg.SynthesizerMaxTokens == 0 {
		cfg.SynthesizerMaxTokens = defaultSynthesizerTokens
	}
	if cfg.PrimaryMaxTokens == 0 {
		cfg.PrimaryMaxTokens = defaultPrimaryMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.MaxToolIterations == 0 {
		cfg.MaxToolIterations = defaultMaxToolIterations
	}
	if cfg.SearchTopK == 0 {
		cfg.SearchTopK = defaultSearchTopK
	}

	return &cfg, nil
}

// FromEnv is a convenience equivalent to NewBuilder().FromEnv().Build().
func FromEnv() (*AgentConfig, error) {
	return NewBuilder().FromEnv().Build()
}
