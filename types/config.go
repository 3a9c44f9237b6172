// Package types holds shared configuration types.
package types

// AppConfig represents the complete application configuration
type AppConfig struct {
	Verbose bool         `mapstructure:"verbose"`
	Config  string       `mapstructure:"config"`
	Server  ServerConfig `mapstructure:"server" validate:"required"`
	Data    DataConfig   `mapstructure:"data" validate:"required"`
	LLM     LLMConfig    `mapstructure:"llm" validate:"omitempty"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// DataConfig holds data storage configuration
type DataConfig struct {
	// Path is the SQLite database file, or ":memory:" for an ephemeral store.
	Path string `mapstructure:"path" validate:"required"`
}

// LLMConfig holds configuration for LLM integration
type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"omitempty,oneof=openai ollama anthropic gemini"`
	Model    string `mapstructure:"model" validate:"omitempty,min=1"`
	APIKey   string `mapstructure:"apiKey" validate:"omitempty,min=1"`
	BaseURL  string `mapstructure:"baseURL" validate:"omitempty,url"`
}
