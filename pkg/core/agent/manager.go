package agent

import (
	"context"

	"statement_analysis/pkg/core/llm"
)

// Config routes each agent to a model provider. Loaded from configs/agents.yaml.
type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Description string `yaml:"description"`
}

// Manager resolves which provider serves which agent. Vision-dependent
// agents must be routed to a vision-capable provider (openai or gemini).
type Manager struct {
	config    Config
	providers map[string]llm.Provider
}

func NewManager(config Config, openai *llm.OpenAIProvider) *Manager {
	return &Manager{
		config: config,
		providers: map[string]llm.Provider{
			"openai":   openai,
			"gemini":   &llm.GeminiProvider{},
			"deepseek": &llm.DeepSeekProvider{},
		},
	}
}

// GetProvider returns the provider for an agent: agent-specific override
// first, then the global active provider, then openai.
func (m *Manager) GetProvider(agentType string) llm.Provider {
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p
		}
	}
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p
	}
	return m.providers["openai"]
}

// ExecutePrompt sends a text prompt through the agent's routed provider.
func (m *Manager) ExecutePrompt(ctx context.Context, agentType string, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	return m.GetProvider(agentType).GenerateResponse(ctx, prompt, systemPrompt, options)
}

// ExecuteVisionPrompt sends a prompt plus page raster through the agent's
// routed provider.
func (m *Manager) ExecuteVisionPrompt(ctx context.Context, agentType string, prompt string, imageBase64 string, options map[string]interface{}) (string, error) {
	return m.GetProvider(agentType).GenerateVisionResponse(ctx, prompt, imageBase64, options)
}

func (m *Manager) GetActiveProvider() string {
	return m.config.ActiveProvider
}
