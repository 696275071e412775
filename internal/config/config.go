package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type MappingConfig struct {
	ORSAPIKey    string `toml:"ors_api_key"`
	ORSBaseURL   string `toml:"ors_base_url"`
	NominatimURL string `toml:"nominatim_url"`
	UserAgent    string `toml:"user_agent"`
	OutputDir    string `toml:"output_dir"`
	OpenBrowser  bool   `toml:"open_browser"`
}

type StoreConfig struct {
	RoutesPath        string `toml:"routes_path"`
	AnomaliesPath     string `toml:"anomalies_path"`
	ConversationsPath string `toml:"conversations_path"`
}

type AssistantConfig struct {
	MaxAttempts int `toml:"max_attempts"`
}

// Prompts holds the system-role task descriptions sent with each LLM call,
// plus the static fallbacks used when a call fails.
type Prompts struct {
	Extraction              string `toml:"extraction"`
	Acknowledge             string `toml:"acknowledge"`
	AcknowledgeFallback     string `toml:"acknowledge_fallback"`
	CustomerMessage         string `toml:"customer_message"`
	CustomerMessageFallback string `toml:"customer_message_fallback"`
	Sender                  string `toml:"sender"`
}

type Config struct {
	LLM       LLMConfig       `toml:"llm"`
	Mapping   MappingConfig   `toml:"mapping"`
	Store     StoreConfig     `toml:"store"`
	Assistant AssistantConfig `toml:"assistant"`
	Prompts   Prompts         `toml:"prompts"`
}

const (
	defaultORSBaseURL   = "https://api.openrouteservice.org/v2/directions/driving-car/geojson"
	defaultNominatimURL = "https://nominatim.openstreetmap.org/search"
	defaultUserAgent    = "detour-route-mapper"
	defaultMaxAttempts  = 5
)

// Default returns a configuration usable without a config file, except for
// credentials which must come from the environment.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o",
		},
		Mapping: MappingConfig{
			ORSBaseURL:   defaultORSBaseURL,
			NominatimURL: defaultNominatimURL,
			UserAgent:    defaultUserAgent,
			OutputDir:    ".",
		},
		Store: StoreConfig{
			RoutesPath:        "data/routes.csv",
			AnomaliesPath:     "data/anomalies.csv",
			ConversationsPath: "data/conversations.csv",
		},
		Assistant: AssistantConfig{
			MaxAttempts: defaultMaxAttempts,
		},
		Prompts: defaultPrompts(),
	}
}

// Load reads a TOML config file, fills unset fields from defaults, and applies
// environment overrides. A missing file is not an error; the defaults plus the
// environment are enough to run.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
	} else if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.fillDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Mapping.ORSBaseURL == "" {
		c.Mapping.ORSBaseURL = d.Mapping.ORSBaseURL
	}
	if c.Mapping.NominatimURL == "" {
		c.Mapping.NominatimURL = d.Mapping.NominatimURL
	}
	if c.Mapping.UserAgent == "" {
		c.Mapping.UserAgent = d.Mapping.UserAgent
	}
	if c.Mapping.OutputDir == "" {
		c.Mapping.OutputDir = d.Mapping.OutputDir
	}
	if c.Store.RoutesPath == "" {
		c.Store.RoutesPath = d.Store.RoutesPath
	}
	if c.Store.AnomaliesPath == "" {
		c.Store.AnomaliesPath = d.Store.AnomaliesPath
	}
	if c.Store.ConversationsPath == "" {
		c.Store.ConversationsPath = d.Store.ConversationsPath
	}
	if c.Assistant.MaxAttempts <= 0 {
		c.Assistant.MaxAttempts = d.Assistant.MaxAttempts
	}
	dp := defaultPrompts()
	if c.Prompts.Extraction == "" {
		c.Prompts.Extraction = dp.Extraction
	}
	if c.Prompts.Acknowledge == "" {
		c.Prompts.Acknowledge = dp.Acknowledge
	}
	if c.Prompts.AcknowledgeFallback == "" {
		c.Prompts.AcknowledgeFallback = dp.AcknowledgeFallback
	}
	if c.Prompts.CustomerMessage == "" {
		c.Prompts.CustomerMessage = dp.CustomerMessage
	}
	if c.Prompts.CustomerMessageFallback == "" {
		c.Prompts.CustomerMessageFallback = dp.CustomerMessageFallback
	}
	if c.Prompts.Sender == "" {
		c.Prompts.Sender = dp.Sender
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("ORS_API_KEY"); v != "" {
		c.Mapping.ORSAPIKey = v
	}
	if v := os.Getenv("ROUTES_CSV"); v != "" {
		c.Store.RoutesPath = v
	}
	if v := os.Getenv("ANOMALIES_CSV"); v != "" {
		c.Store.AnomaliesPath = v
	}
	if v := os.Getenv("CONVERSATIONS_CSV"); v != "" {
		c.Store.ConversationsPath = v
	}
	if v := os.Getenv("MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Assistant.MaxAttempts = n
		}
	}
}

func defaultPrompts() Prompts {
	return Prompts{
		Extraction: "You are an assistant that extracts structured information from driver messages. " +
			"Return ONLY a valid JSON with keys: 'cause', 'new_route', 'new_eta'. If something is missing, set it to null. " +
			`Example: {"cause": "accident", "new_route": ["City A", "City B"], "new_eta": "18:30"}`,
		Acknowledge: "You are a friendly assistant responding to a truck driver. " +
			"Acknowledge their response, thank them, and offer help if necessary.",
		AcknowledgeFallback: "Thanks for the update, I'll keep that in mind!",
		CustomerMessage: "You are an assistant for Traffic Tech drafting messages for customers in a polite, formal tone. " +
			"Explain the cause of the delay, the new ETA, and the new route. Sign as %s.",
		CustomerMessageFallback: "Could not generate customer message.",
		Sender:                  "Traffic Tech Dispatch",
	}
}
