package agentstep

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHarvestWaitErrorFoldsIntoAgentFailed(t *testing.T) {
	c := &Controller{}
	base := &Result{}
	result := c.harvest(Request{WorkspaceDir: t.TempDir()}, base, "no markers here", errors.New("container exited 1"))

	assert.True(t, result.AgentFailed)
	assert.Equal(t, "container exited 1", result.Error)
	assert.False(t, result.Completed)
}

func TestHarvestSyntheticFailureWithoutWaitError(t *testing.T) {
	c := &Controller{}
	base := &Result{}
	result := c.harvest(Request{WorkspaceDir: t.TempDir()}, base, "starting\nERROR: disk full\n", nil)

	assert.True(t, result.AgentFailed)
	assert.Contains(t, result.Error, "disk full")
}

func TestHarvestCapabilityMarkerSuppressesAgentFailed(t *testing.T) {
	c := &Controller{}
	base := &Result{}
	log := "CAPABILITY_REQUEST:pip_package:pandas:need it\n"
	result := c.harvest(Request{WorkspaceDir: t.TempDir()}, base, log, errors.New("container exited 1"))

	assert.True(t, result.CapabilityRequested)
	assert.False(t, result.AgentFailed, "a capability request should take precedence over a wait error")
	require.NotNil(t, result.Capability)
	assert.Equal(t, "pandas", result.Capability.Resource)
}

func TestHarvestCapabilityMarkerSuppressesDeploymentMarker(t *testing.T) {
	c := &Controller{}
	base := &Result{}
	log := "CAPABILITY_REQUEST:pip_package:pandas:need it\nDEPLOYMENT_REQUEST:dashboard:8080:python app.py\n"
	result := c.harvest(Request{WorkspaceDir: t.TempDir()}, base, log, nil)

	assert.True(t, result.CapabilityRequested)
	assert.False(t, result.DeploymentRequested, "capability requests win over a simultaneous deployment marker")
}

func TestHarvestDeploymentMarkerWithoutCapability(t *testing.T) {
	c := &Controller{}
	base := &Result{}
	log := "DEPLOYMENT_REQUEST:dashboard:8080:python app.py\n"
	result := c.harvest(Request{WorkspaceDir: t.TempDir()}, base, log, nil)

	assert.True(t, result.DeploymentRequested)
	require.NotNil(t, result.Deployment)
	assert.Equal(t, "dashboard", result.Deployment.Name)
	assert.Equal(t, 8080, result.Deployment.Port)
}

func TestHarvestCompletedResultClearsFailureState(t *testing.T) {
	c := &Controller{}
	base := &Result{}
	log := "===OPENCLAW_RESULT_JSON_START===\n{\"ok\":true}\n===OPENCLAW_RESULT_JSON_END===\n"
	result := c.harvest(Request{WorkspaceDir: t.TempDir()}, base, log, nil)

	assert.True(t, result.Completed)
	assert.False(t, result.AgentFailed)
	assert.Empty(t, result.Error)
}

func TestHarvestTruncatesAgentLogs(t *testing.T) {
	c := &Controller{}
	base := &Result{}
	huge := strings.Repeat("a", maxAgentLogBytes*2)
	result := c.harvest(Request{WorkspaceDir: t.TempDir()}, base, huge, nil)

	assert.LessOrEqual(t, len(result.AgentLogs), maxAgentLogBytes)
}

func TestHarvestAttachesDeliverables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	c := &Controller{}
	base := &Result{}
	result := c.harvest(Request{WorkspaceDir: dir}, base, "no markers", nil)

	assert.Equal(t, "hello", result.Deliverables["notes.txt"])
}
