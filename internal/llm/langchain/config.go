package langchain

import "time"

// Config for the reasoning-service client.
type Config struct {
	APIKey      string        // if empty the client reports unavailable
	BaseURL     string        // optional OpenAI-compatible endpoint
	Model       string        // e.g. "gpt-4o" (vision-capable)
	Temperature float32       // 0..2
	MaxTokens   int           // completion cap, 0 = provider default
	Timeout     time.Duration // per-call deadline
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
	if c.Timeout <= 0 {
		c.Timeout = 45 * time.Second
	}
	return c
}
