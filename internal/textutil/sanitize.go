package textutil

import (
	"fmt"
	"strings"
	"unicode"
)

// maxBaseNameRunes keeps generated names well under common filesystem limits.
const maxBaseNameRunes = 80

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters and control characters are removed. Leading dots are stripped
// so a title can never produce a hidden file or a relative path segment.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = fileNameReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimLeft(strings.TrimSpace(name), ".")
	if runes := []rune(name); len(runes) > maxBaseNameRunes {
		name = string(runes[:maxBaseNameRunes])
	}
	return strings.TrimSpace(name)
}

// OrdinalBaseName builds the "NN-title" base name used for workspace files.
// An empty title becomes "track".
func OrdinalBaseName(ordinal int, title string) string {
	clean := SanitizeFileName(title)
	if clean == "" {
		clean = "track"
	}
	return fmt.Sprintf("%02d-%s", ordinal, clean)
}
