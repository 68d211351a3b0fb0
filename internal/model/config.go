package model

import (
	"fmt"
	"time"
)

// Config holds the complete ontobridge configuration
type Config struct {
	Alignment    AlignmentConfig   `yaml:"alignment" mapstructure:"alignment"`
	Lexicon      LexiconConfig     `yaml:"lexicon" mapstructure:"lexicon"`
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	Tool         ToolConfig        `yaml:"tool" mapstructure:"tool"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Mediator     MediatorConfig    `yaml:"mediator" mapstructure:"mediator"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// AlignmentConfig tunes candidate generation
type AlignmentConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"` // Below this a mapping needs confirmation
	MinSimilarity       float64 `yaml:"min_similarity" mapstructure:"min_similarity"`             // Pairs at or below are discarded
	TopK                int     `yaml:"top_k" mapstructure:"top_k"`                               // Candidates kept per source concept
	LabelWeight         float64 `yaml:"label_weight" mapstructure:"label_weight"`
	CommentWeight       float64 `yaml:"comment_weight" mapstructure:"comment_weight"`
	Method              string  `yaml:"method" mapstructure:"method"`         // custom, api, combined, seed
	SeedsPath           string  `yaml:"seeds_path" mapstructure:"seeds_path"` // Optional YAML seed table
}

// LexiconConfig points at the taxonomy used for semantic similarity
type LexiconConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // Empty uses the embedded default
}

// StoreConfig configures persisted service alignments
type StoreConfig struct {
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
}

// ToolConfig configures the external alignment process
type ToolConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Command []string      `yaml:"command" mapstructure:"command"` // argv; {source} and {target} are substituted
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// HTTPConfig configures fetching of remote service descriptions
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the fetched-document cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitConfig configures per-host limits for remote fetches
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig configures batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// MediatorConfig describes the local (client) side of the mediation
type MediatorConfig struct {
	LocalOntology string `yaml:"local_ontology" mapstructure:"local_ontology"` // Path to the client's own ontology
	Namespace     string `yaml:"namespace,omitempty" mapstructure:"namespace"` // Fallback namespace for unmapped request fields
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string  `yaml:"addr" mapstructure:"addr"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// LLMConfig configures the optional reviewer
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, or empty
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictIRIs bool   `yaml:"strict_iris" mapstructure:"strict_iris"`
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig configures CLI output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Alignment: AlignmentConfig{
			ConfidenceThreshold: DefaultConfidenceThreshold,
			MinSimilarity:       0.5,
			TopK:                3,
			LabelWeight:         0.7,
			CommentWeight:       0.3,
			Method:              string(MethodCombined),
		},
		Store: StoreConfig{
			Dir:       "alignments",
			MemoryTTL: 10 * time.Minute,
		},
		Tool: ToolConfig{
			Enabled: true,
			Command: []string{"java", "-jar", "align.jar", "-i", "{source}", "-o", "{target}", "--format", "json"},
			Timeout: 60 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "ontobridge/0.1 (+https://github.com/ppiankov/ontobridge)",
			MaxBodyBytes:  5_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".ontobridge-cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Server: ServerConfig{
			Addr:           ":5000",
			RateLimitRPS:   50,
			RateLimitBurst: 100,
		},
		LLM: LLMConfig{
			Timeout:    30,
			StrictIRIs: true,
			MaxTokens:  800,
		},
	}
}

// Validate checks ranges that would otherwise silently skew scores
func (c *Config) Validate() error {
	a := c.Alignment
	if a.ConfidenceThreshold < 0 || a.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: alignment.confidence_threshold must be in [0,1], got %v", ErrInvalidConfig, a.ConfidenceThreshold)
	}
	if a.MinSimilarity < 0 || a.MinSimilarity > 1 {
		return fmt.Errorf("%w: alignment.min_similarity must be in [0,1], got %v", ErrInvalidConfig, a.MinSimilarity)
	}
	if a.TopK <= 0 {
		return fmt.Errorf("%w: alignment.top_k must be positive, got %d", ErrInvalidConfig, a.TopK)
	}
	if a.LabelWeight < 0 || a.CommentWeight < 0 || a.LabelWeight+a.CommentWeight > 1+1e-9 {
		return fmt.Errorf("%w: label_weight + comment_weight must be non-negative and sum to at most 1", ErrInvalidConfig)
	}
	if _, err := ParseMethod(a.Method); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("%w: store.dir is required", ErrInvalidConfig)
	}
	if c.Tool.Enabled && len(c.Tool.Command) == 0 {
		return fmt.Errorf("%w: tool.command is empty but tool.enabled is set", ErrInvalidConfig)
	}
	return nil
}
