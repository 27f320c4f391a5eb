// Package device condenses raw User-Agent strings into short, human-readable
// device summaries for audit entries ("Chrome 120 on Linux").
package device

import (
	"fmt"

	"github.com/mssola/useragent"
)

// Summarize parses a User-Agent header into a compact description.
// Unparseable or empty agents yield "unknown device".
func Summarize(rawUA string) string {
	if rawUA == "" {
		return "unknown device"
	}

	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	os := ua.OSInfo().Name

	if name == "" && os == "" {
		return "unknown device"
	}
	if name == "" {
		return os
	}
	if os == "" {
		if version == "" {
			return name
		}
		return fmt.Sprintf("%s %s", name, majorVersion(version))
	}
	if version == "" {
		return fmt.Sprintf("%s on %s", name, os)
	}
	return fmt.Sprintf("%s %s on %s", name, majorVersion(version), os)
}

func majorVersion(version string) string {
	for i := 0; i < len(version); i++ {
		if version[i] == '.' {
			return version[:i]
		}
	}
	return version
}
