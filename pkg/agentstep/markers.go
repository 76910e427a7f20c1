package agentstep

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	resultStartMarker = "===OPENCLAW_RESULT_JSON_START==="
	resultEndMarker   = "===OPENCLAW_RESULT_JSON_END==="
)

// extractResultJSON implements spec §4.D step 6: locate the delimited block
// in container stdout, falling back to workspace/result.json, falling back
// to a synthetic-failure scan of the tail.
func extractResultJSON(containerLog, workspaceDir string) (map[string]any, bool, string) {
	if start := strings.Index(containerLog, resultStartMarker); start >= 0 {
		start += len(resultStartMarker)
		if end := strings.Index(containerLog[start:], resultEndMarker); end >= 0 {
			raw := strings.TrimSpace(containerLog[start : start+end])
			var parsed map[string]any
			if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
				return parsed, true, ""
			}
		}
	}

	if workspaceDir != "" {
		data, err := os.ReadFile(filepath.Join(workspaceDir, "result.json"))
		if err == nil {
			var parsed map[string]any
			if err := json.Unmarshal(data, &parsed); err == nil {
				return parsed, true, ""
			}
		}
	}

	if syntheticErr := scanForFailure(containerLog); syntheticErr != "" {
		return nil, false, syntheticErr
	}
	return nil, false, "no result marker, result.json, or recognizable failure found in agent output"
}

var (
	errorLineRe     = regexp.MustCompile(`(?m)^ERROR:.*$`)
	tracebackRe     = regexp.MustCompile(`(?m)^Traceback \(most recent call last\):`)
)

// scanForFailure implements the "scan the tail for ERROR: or traceback
// markers" fallback (spec §4.D step 6).
func scanForFailure(containerLog string) string {
	tail := containerLog
	const tailWindow = 4096
	if len(tail) > tailWindow {
		tail = tail[len(tail)-tailWindow:]
	}
	if m := errorLineRe.FindString(tail); m != "" {
		return strings.TrimSpace(m)
	}
	if tracebackRe.MatchString(tail) {
		lines := strings.Split(tail, "\n")
		return strings.TrimSpace(strings.Join(lines[max(0, len(lines)-10):], "\n"))
	}
	return ""
}

var (
	capabilityRequestRe = regexp.MustCompile(`CAPABILITY_REQUEST:([^:]+):([^:]+):(.+)`)
	deploymentRequestRe = regexp.MustCompile(`DEPLOYMENT_REQUEST:([^:]+):(\d+):(.+)`)
	moduleNotFoundRe    = regexp.MustCompile(`ModuleNotFoundError|ImportError|no module named '([^']+)'`)
	pipFailedRe         = regexp.MustCompile(`(?i)pip install.*(failed|error)`)
	npmMissingModuleRe  = regexp.MustCompile(`(?i)npm.*cannot find module '([^']+)'`)
)

// capabilityMarker is one parsed CAPABILITY_REQUEST line or an implicit
// request inferred from a missing-dependency error (spec §4.D "Marker
// parsing inside the container").
type capabilityMarker struct {
	Kind     string
	Packages []string
	Reason   string
}

// deploymentMarker is one parsed DEPLOYMENT_REQUEST line, with the
// entrypoint's trailing unbalanced shell quote stripped.
type deploymentMarker struct {
	Name       string
	Port       int
	Entrypoint string
}

func findCapabilityMarker(agentLog string) *capabilityMarker {
	if m := capabilityRequestRe.FindStringSubmatch(agentLog); m != nil {
		pkgs := strings.Split(m[2], ",")
		for i := range pkgs {
			pkgs[i] = strings.TrimSpace(pkgs[i])
		}
		return &capabilityMarker{Kind: m[1], Packages: pkgs, Reason: strings.TrimSpace(m[3])}
	}

	if m := moduleNotFoundRe.FindStringSubmatch(agentLog); m != nil {
		pkg := m[1]
		reason := "missing Python module detected in agent output"
		var pkgs []string
		if pkg != "" {
			pkgs = []string{pkg}
		}
		return &capabilityMarker{Kind: "pip_package", Packages: pkgs, Reason: reason}
	}

	if pipFailedRe.MatchString(agentLog) {
		return &capabilityMarker{Kind: "pip_package", Reason: "pip install failure detected in agent output"}
	}

	if m := npmMissingModuleRe.FindStringSubmatch(agentLog); m != nil {
		mod := m[1]
		if !strings.Contains(mod, "/") && !strings.HasPrefix(mod, ".") {
			return &capabilityMarker{Kind: "npm_package", Packages: []string{mod}, Reason: "missing npm module detected in agent output"}
		}
	}

	return nil
}

func findDeploymentMarker(agentLog string) *deploymentMarker {
	m := deploymentRequestRe.FindStringSubmatch(agentLog)
	if m == nil {
		return nil
	}
	port := 0
	for _, c := range m[2] {
		port = port*10 + int(c-'0')
	}
	return &deploymentMarker{Name: m[1], Port: port, Entrypoint: stripUnbalancedTrailingQuote(m[3])}
}

// stripUnbalancedTrailingQuote drops a trailing quote character that has no
// matching opener (spec §4.D "unbalanced trailing quote characters are
// stripped").
func stripUnbalancedTrailingQuote(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	last := s[len(s)-1]
	if last != '\'' && last != '"' {
		return s
	}
	if strings.Count(s, string(last))%2 == 1 {
		return s[:len(s)-1]
	}
	return s
}
