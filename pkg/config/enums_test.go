package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLLMProviderTypeValidate(t *testing.T) {
	valid := []LLMProviderType{ProviderOllama, ProviderGemini, ProviderAnthropic, ProviderOpenAI}
	for _, p := range valid {
		assert.NoError(t, p.Validate())
	}

	err := LLMProviderType("bedrock").Validate()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidValue))
}
