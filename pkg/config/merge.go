package config

// mergeLLMProviders merges built-in and user-defined provider configurations.
// A user-defined provider replaces the built-in one of the same name
// wholesale (fields the user omits are not filled in from the built-in);
// built-ins the user does not redefine are kept as-is.
func mergeLLMProviders(builtin map[string]LLMProviderConfig, user map[string]LLMProviderConfig) map[string]*LLMProviderConfig {
	result := make(map[string]*LLMProviderConfig, len(builtin))

	for name, provider := range builtin {
		providerCopy := provider
		result[name] = &providerCopy
	}

	for name, userProvider := range user {
		providerCopy := userProvider
		result[name] = &providerCopy
	}

	return result
}
