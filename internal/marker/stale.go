package marker

import (
	"regexp"
	"strings"
)

const markerCore = `\[\s*(?:SECTION|FUNC|CLASS|END)\s*:\s*[^\]]*\]\s*(?:START|END)?\s*`

var (
	staleMarkerRegex = regexp.MustCompile(`(?i)^\s*(?:#|//|;|REM\s+|<!--\s*)?\s*` + markerCore + `(?:-->)?\s*$`)
	staleRegionRegex = regexp.MustCompile(`(?i)^\s*(?:#|//|;|REM\s+)\s*(?:end)?region\b.*$`)
	// Only commented rules count; a bare "---" is syntax in YAML and Markdown.
	staleDecorRegex = regexp.MustCompile(`(?i)^\s*(?:(?:#|//|;|REM\s+)\s*[-=]{3,}.*|<!--\s*[-=]{3,}.*-->\s*)$`)

	extensionPointRegex = regexp.MustCompile(`^\s*(?:#|//|;|REM\s+|<!--)?\s*\[END:\s*SECTION:\s*EXTENSION_POINTS\]\s*(?:-->)?\s*$`)
)

// IsStale reports whether a line is a marker, region pragma or decorative
// rule that a fresh annotation pass replaces.
func IsStale(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	return staleMarkerRegex.MatchString(line) ||
		staleRegionRegex.MatchString(line) ||
		staleDecorRegex.MatchString(line)
}

// StripStale removes stale lines and reports how many were removed.
func StripStale(lines []string) ([]string, int) {
	cleaned := make([]string, 0, len(lines))
	removed := 0
	for _, line := range lines {
		if IsStale(line) {
			removed++
			continue
		}
		cleaned = append(cleaned, line)
	}
	return cleaned, removed
}

// ExtensionPointEnd is the marker body that closes the extension-point section.
const ExtensionPointEnd = "[END: SECTION: EXTENSION_POINTS]"

// IsExtensionPointEnd reports whether line closes the extension-point section
// in any of the comment dialects.
func IsExtensionPointEnd(line string) bool {
	return extensionPointRegex.MatchString(strings.TrimRight(line, "\r\n"))
}
