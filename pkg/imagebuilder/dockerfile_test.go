package imagebuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderAgentDockerfileFromsBaseImage(t *testing.T) {
	out := RenderAgentDockerfile("openclaw-agent-base:latest", NormalizedCapabilities{})
	assert.Equal(t, "FROM openclaw-agent-base:latest\n\n", out)
}

func TestRenderAgentDockerfileIncrementalLayering(t *testing.T) {
	// spec §8 "Incremental layering": version k's FROM is version k-1's tag.
	out := RenderAgentDockerfile("openclaw-agent:task-1-v1", NormalizedCapabilities{
		Pip: []Capability{{Name: "pandas"}},
	})
	require.Contains(t, out, "FROM openclaw-agent:task-1-v1\n")
	assert.Contains(t, out, "pip install --no-cache-dir --break-system-packages pandas")
	assert.Contains(t, out, "/opt/venv/bin/pip install")
}

func TestRenderAgentDockerfileAptBlockSingleInstall(t *testing.T) {
	out := RenderAgentDockerfile("base:latest", NormalizedCapabilities{
		Apt: []Capability{{Name: "graphviz"}, {Name: "ffmpeg"}},
	})
	assert.Contains(t, out, "apt-get update && apt-get install -y --no-install-recommends")
	assert.Contains(t, out, "graphviz")
	assert.Contains(t, out, "ffmpeg")
	assert.Contains(t, out, "rm -rf /var/lib/apt/lists/*")
}

func TestRenderAgentDockerfilePinsPipVersion(t *testing.T) {
	out := RenderAgentDockerfile("base:latest", NormalizedCapabilities{
		Pip: []Capability{{Name: "pandas", Version: "2.2.0"}},
	})
	assert.Contains(t, out, "pandas==2.2.0")
}

func TestRenderAgentDockerfileToolCopy(t *testing.T) {
	out := RenderAgentDockerfile("base:latest", NormalizedCapabilities{
		Tool: []Capability{{Name: "ripgrep"}},
	})
	assert.Contains(t, out, "COPY tools/ripgrep /opt/tools/ripgrep")
}

func TestRenderDeploymentDockerfileExecFormCMD(t *testing.T) {
	out := RenderDeploymentDockerfile(nil, nil, 5000, "python app.py")
	assert.Contains(t, out, "FROM python:3.11-slim")
	assert.Contains(t, out, "EXPOSE 5000")
	assert.Contains(t, out, `CMD ["python", "app.py"]`)
	assert.Contains(t, out, "sed -i 's|/workspace/|/app/|g'")
}

func TestRenderDeploymentDockerfileShellFormCMDForShellMetacharacters(t *testing.T) {
	out := RenderDeploymentDockerfile(nil, []string{"flask"}, 5000, "flask run --host=0.0.0.0 && echo done")
	assert.Contains(t, out, `CMD ["/bin/sh", "-c",`)
	assert.Contains(t, out, "pip install --no-cache-dir --break-system-packages flask")
}

func TestRenderDeploymentDockerfileAptPackages(t *testing.T) {
	out := RenderDeploymentDockerfile([]string{"libpq-dev"}, nil, 8000, "python app.py")
	assert.Contains(t, out, "apt-get install -y --no-install-recommends libpq-dev")
}
