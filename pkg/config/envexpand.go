package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv expands {{.VAR}} placeholders in YAML content against the
// current environment, so a file can read secrets such as GEMINI_API_KEY
// out of the process environment without checking them into agentcore.yaml.
// Shell-style $VAR and ${VAR} references are left as literal text.
//
// Examples:
//   - {{.GEMINI_API_KEY}}          → value of GEMINI_API_KEY
//   - {{.REGISTRY}}/openclaw-agent → "registry.internal:5000/openclaw-agent"
//
// Missing variables expand to the empty string. Malformed template syntax,
// or a template that fails to execute, leaves the original bytes untouched
// so the YAML parser reports a clearer error than a half-expanded template
// would.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("config").Parse(string(data))
	if err != nil {
		return data
	}

	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Option("missingkey=zero").Execute(&buf, vars); err != nil {
		return data
	}

	return buf.Bytes()
}
