package imagebuilder

import (
	"fmt"
	"os"
	"path/filepath"
)

// agentImageTag implements the image tag convention of spec §9:
// "openclaw-agent:{task_id}-v{N}".
func agentImageTag(taskID string, version int) string {
	return fmt.Sprintf("openclaw-agent:%s-v%d", taskID, version)
}

// deploymentImageTag implements "openclaw-deploy:{deployment_id}".
func deploymentImageTag(deploymentID string) string {
	return fmt.Sprintf("openclaw-deploy:%s", deploymentID)
}

// nonTerminalOrSuccessful counts prior builds whose state contributes to the
// next version number: spec §4.B "the next version integer is
// 1 + |{prior successful/building/pending builds for this task}|" — a
// failed build does not consume a version slot, so a retried capability
// request reuses the same number.
func nonTerminalOrSuccessful(builds []*Build) int {
	n := 0
	for _, b := range builds {
		if b.Status != BuildFailed {
			n++
		}
	}
	return n
}

// writeDockerfile persists the Dockerfile for version N at both its
// versioned path and the mirrored "latest" path (spec §9 "Filesystem
// layout"), creating the per-task directory if needed.
func writeDockerfile(agentImagesDir, taskID string, version int, content string) error {
	dir := filepath.Join(agentImagesDir, taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create agent image dir %s: %w", dir, err)
	}

	versioned := filepath.Join(dir, fmt.Sprintf("Dockerfile.v%d", version))
	if err := os.WriteFile(versioned, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", versioned, err)
	}

	latest := filepath.Join(dir, "Dockerfile")
	if err := os.WriteFile(latest, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", latest, err)
	}
	return nil
}
