package agentstep

import (
	"os"
	"path/filepath"
)

// maxDeliverableBytes bounds how much of any single workspace file is read
// into the result envelope's deliverables map.
const maxDeliverableBytes = 256 * 1024

// collectDeliverables reads every regular top-level file in the workspace
// (excluding the result-marker fallback file) into a name→content map for
// the result envelope (spec §4.D "deliverables: {name→content}").
func collectDeliverables(workspaceDir string) (map[string]string, error) {
	entries, err := os.ReadDir(workspaceDir)
	if err != nil {
		return nil, err
	}

	out := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == "result.json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(workspaceDir, entry.Name()))
		if err != nil {
			continue
		}
		if len(data) > maxDeliverableBytes {
			data = data[:maxDeliverableBytes]
		}
		out[entry.Name()] = string(data)
	}
	return out, nil
}
