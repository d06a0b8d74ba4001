package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	multipleSpaces       = regexp.MustCompile(`\s+`)
)

// maxFilenameLen leaves room for a suffix and an extension under the usual
// 255 byte limit.
const maxFilenameLen = 120

// SanitizeFilename turns an album or media object title into a safe file name
// fragment. Empty results become "untitled".
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, " ")
	name = multipleSpaces.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.Trim(name, ".-")

	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
		for !utf8.ValidString(name) {
			name = name[:len(name)-1]
		}
		name = strings.TrimRight(name, ".-")
	}

	if name == "" {
		return "untitled"
	}
	return name
}
