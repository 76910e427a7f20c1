package imagebuilder

import (
	"fmt"
	"regexp"
	"strings"
)

// RenderAgentDockerfile emits the Dockerfile for one incremental agent
// image layer (spec §4.B "Dockerfile emission"): img_k = img_{k-1} + cap_k.
// baseImage is the previous iteration's image tag, or the shared base image
// for the first build. Built with strings.Builder rather than text/template
// since the output is a small, line-oriented script, not a data-driven
// document — matching how Dockerfile generation is done elsewhere in the
// retrieved example pack (containerization-assist's docker.go).
func RenderAgentDockerfile(baseImage string, caps NormalizedCapabilities) string {
	var b strings.Builder

	fmt.Fprintf(&b, "FROM %s\n\n", baseImage)

	if len(caps.Apt) > 0 {
		names := make([]string, len(caps.Apt))
		for i, c := range caps.Apt {
			names[i] = c.Name
		}
		fmt.Fprintf(&b, "RUN apt-get update && apt-get install -y --no-install-recommends %s \\\n    && rm -rf /var/lib/apt/lists/*\n\n",
			strings.Join(names, " "))
	}

	if len(caps.Pip) > 0 {
		names := joinPackageSpecs(caps.Pip)
		// Installed into both the virtual-env interpreter (if the base
		// image uses one) and the system interpreter, so the agent sees
		// the package regardless of which python the entrypoint launches.
		fmt.Fprintf(&b, "RUN pip install --no-cache-dir --break-system-packages %s\n", names)
		fmt.Fprintf(&b, "RUN test -d /opt/venv && /opt/venv/bin/pip install --no-cache-dir %s || true\n\n", names)
	}

	if len(caps.Npm) > 0 {
		names := joinPackageSpecs(caps.Npm)
		fmt.Fprintf(&b, "RUN npm install -g %s\n\n", names)
	}

	for _, t := range caps.Tool {
		fmt.Fprintf(&b, "COPY tools/%s /opt/tools/%s\n", t.Name, t.Name)
	}
	if len(caps.Tool) > 0 {
		b.WriteString("\n")
	}

	return b.String()
}

func joinPackageSpecs(caps []Capability) string {
	specs := make([]string, len(caps))
	for i, c := range caps {
		if c.Version != "" {
			specs[i] = c.Name + "==" + c.Version
		} else {
			specs[i] = c.Name
		}
	}
	return strings.Join(specs, " ")
}

// shellMetaRe matches characters that mean an entrypoint must be run as a
// shell command rather than exec'd directly (spec §4.B "Deployment build").
var shellMetaRe = regexp.MustCompile(`[&|;><$` + "`" + `]`)

// RenderDeploymentDockerfile emits the minimal deployment image Dockerfile
// (spec §4.B "Deployment build"). pipPackages/aptPackages are inferred by
// the caller from the task's most recent agent Dockerfile.
func RenderDeploymentDockerfile(aptPackages, pipPackages []string, port int, entrypoint string) string {
	var b strings.Builder

	b.WriteString("FROM python:3.11-slim\n\n")

	if len(aptPackages) > 0 {
		fmt.Fprintf(&b, "RUN apt-get update && apt-get install -y --no-install-recommends %s \\\n    && rm -rf /var/lib/apt/lists/*\n\n",
			strings.Join(aptPackages, " "))
	}
	if len(pipPackages) > 0 {
		fmt.Fprintf(&b, "RUN pip install --no-cache-dir --break-system-packages %s\n\n", strings.Join(pipPackages, " "))
	}

	b.WriteString("COPY app/ /app/\n")
	// Paths the agent embedded while writing inside /workspace no longer
	// resolve once the files are relocated under /app; rewrite them in any
	// text-looking file before the image is finalised.
	b.WriteString(`RUN find /app -type f \( -name "*.py" -o -name "*.txt" -o -name "*.json" -o -name "*.yaml" -o -name "*.yml" -o -name "*.cfg" -o -name "*.ini" \) -exec sed -i 's|/workspace/|/app/|g' {} +` + "\n\n")

	fmt.Fprintf(&b, "EXPOSE %d\n", port)
	b.WriteString(renderCMD(entrypoint))

	return b.String()
}

func renderCMD(entrypoint string) string {
	if shellMetaRe.MatchString(entrypoint) {
		return fmt.Sprintf("CMD [\"/bin/sh\", \"-c\", %q]\n", entrypoint)
	}
	fields := strings.Fields(entrypoint)
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	return fmt.Sprintf("CMD [%s]\n", strings.Join(quoted, ", "))
}
