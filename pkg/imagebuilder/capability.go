package imagebuilder

import "strings"

// systemPackageNames is the fixed allow-list of names that are always apt
// packages regardless of how the requester tagged them (spec §4.B
// "Capability normalization"). Lower-cased for comparison.
var systemPackageNames = map[string]bool{
	"redis-server":  true,
	"postgresql":    true,
	"nginx":         true,
	"ffmpeg":        true,
	"graphviz":      true,
	"libffi-dev":    true,
	"build-essential": true,
	"cmake":         true,
	"git":           true,
	"curl":          true,
	"imagemagick":   true,
	"poppler-utils": true,
	"tesseract-ocr": true,
}

// NormalizedCapabilities partitions a raw capability list into the four
// materialisation buckets the Dockerfile template consumes.
type NormalizedCapabilities struct {
	Apt  []Capability
	Pip  []Capability
	Npm  []Capability
	Tool []Capability
}

// Normalize applies spec §4.B's capability normalization rules: split
// comma-separated names, reclassify known system names (and pip-tagged
// "lib*" names) to apt, then partition by kind.
func Normalize(raw []Capability) (NormalizedCapabilities, error) {
	var out NormalizedCapabilities

	for _, c := range raw {
		names := splitNames(c.Name)
		if len(names) == 0 {
			return out, ErrInvalidCapability
		}
		for _, name := range names {
			kind := c.Kind
			lower := strings.ToLower(name)
			if systemPackageNames[lower] {
				kind = KindAptPackage
			} else if kind == KindPipPackage && strings.HasPrefix(lower, "lib") {
				kind = KindAptPackage
			}

			entry := Capability{Kind: kind, Name: name, Version: c.Version}
			switch kind {
			case KindAptPackage:
				out.Apt = append(out.Apt, entry)
			case KindPipPackage:
				out.Pip = append(out.Pip, entry)
			case KindNpmPackage:
				out.Npm = append(out.Npm, entry)
			case KindTool:
				out.Tool = append(out.Tool, entry)
			default:
				return out, ErrInvalidCapability
			}
		}
	}
	return out, nil
}

func splitNames(raw string) []string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}

func (n NormalizedCapabilities) Empty() bool {
	return len(n.Apt) == 0 && len(n.Pip) == 0 && len(n.Npm) == 0 && len(n.Tool) == 0
}
