package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    Server     `koanf:"server"`
	Relay     Relay      `koanf:"relay"`
	Anthropic Credential `koanf:"anthropic"`
	OpenAI    Credential `koanf:"openai"`
}

type Server struct {
	Port int `koanf:"port"`
	// AllowedOrigin is the origin permitted by CORS. The chat widget runs
	// in browsers, so the endpoint must answer preflight requests.
	AllowedOrigin string `koanf:"allowed_origin"`
}

type Relay struct {
	// Provider selects the upstream: "anthropic", "openai" or "scripted".
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	// MaxTokens caps the length of a single assistant reply.
	MaxTokens int `koanf:"max_tokens"`
	// ContextBudget is the approximate prompt-token ceiling; older
	// transcript turns are dropped once it is exceeded.
	ContextBudget int `koanf:"context_budget"`
	// UpstreamTimeout bounds one upstream call, e.g. "60s".
	UpstreamTimeout string `koanf:"upstream_timeout"`
	// ContextPath points at the product-context document folded into the
	// system instruction.
	ContextPath string `koanf:"context_path"`
}

type Credential struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Load() (*Config, error) {
	k := koanf.New(".")

	// Optional config.yaml; env vars override it.
	if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("CLIK_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "CLIK_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	defaults := map[string]any{
		"server.port":            8080,
		"server.allowed_origin":  "*",
		"relay.provider":         "anthropic",
		"relay.model":            "claude-haiku-4-5-20251001",
		"relay.max_tokens":       300,
		"relay.context_budget":   6000,
		"relay.upstream_timeout": "60s",
		"relay.context_path":     "chat-context.md",
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Anthropic.APIKey = substituteEnvVars(cfg.Anthropic.APIKey)
	cfg.OpenAI.APIKey = substituteEnvVars(cfg.OpenAI.APIKey)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
