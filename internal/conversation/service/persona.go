package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Persona describes how the concierge presents itself on a page.
type Persona struct {
	Name          string `yaml:"name"`
	SystemPrompt  string `yaml:"system_prompt"`
	FallbackReply string `yaml:"fallback_reply"`
}

// PersonaConfig holds the default persona and named variants landing
// pages can reference.
type PersonaConfig struct {
	Default  Persona            `yaml:"default"`
	Personas map[string]Persona `yaml:"personas"`
}

const (
	defaultAgentName     = "Sofia"
	defaultFallbackReply = "Desculpe, estou com uma instabilidade no momento. " +
		"Pode repetir sua mensagem em instantes?"
)

const defaultSystemPrompt = `Você é %s, consultora imobiliária digital da CasaViva.
Atenda visitantes do site com simpatia e objetividade, em português brasileiro.
Responda perguntas sobre o empreendimento usando apenas os fatos fornecidos.
Ao longo da conversa, de forma natural e nunca insistente, procure conhecer o
visitante: nome, faixa de investimento, preferências de imóvel e, quando houver
abertura, um telefone para contato de um consultor.
Nunca invente preços, prazos ou condições. Se não souber, ofereça encaminhar a
um consultor humano.`

// builtinPersona is used when no config file is present so the service
// works out of the box.
func builtinPersona() Persona {
	return Persona{
		Name:          defaultAgentName,
		SystemPrompt:  fmt.Sprintf(defaultSystemPrompt, defaultAgentName),
		FallbackReply: defaultFallbackReply,
	}
}

// LoadPersonaConfig reads the personas file. A missing path or file is not
// an error: the built-in default applies. A present but malformed file is
// an error so a bad deploy fails loudly instead of silently degrading.
func LoadPersonaConfig(path string) (PersonaConfig, error) {
	cfg := PersonaConfig{Default: builtinPersona()}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return PersonaConfig{}, fmt.Errorf("read persona config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return PersonaConfig{}, fmt.Errorf("parse persona config: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults backfills fields omitted in the file from the built-in persona.
func (c *PersonaConfig) fillDefaults() {
	base := builtinPersona()
	if c.Default.Name == "" {
		c.Default.Name = base.Name
	}
	if c.Default.SystemPrompt == "" {
		c.Default.SystemPrompt = base.SystemPrompt
	}
	if c.Default.FallbackReply == "" {
		c.Default.FallbackReply = base.FallbackReply
	}
	for key, p := range c.Personas {
		if p.Name == "" {
			p.Name = c.Default.Name
		}
		if p.SystemPrompt == "" {
			p.SystemPrompt = c.Default.SystemPrompt
		}
		if p.FallbackReply == "" {
			p.FallbackReply = c.Default.FallbackReply
		}
		c.Personas[key] = p
	}
}

// Resolve picks the persona for a page: the page's named persona when it
// exists, the default otherwise.
func (c *PersonaConfig) Resolve(name string) Persona {
	if name != "" {
		if p, ok := c.Personas[name]; ok {
			return p
		}
	}
	return c.Default
}
