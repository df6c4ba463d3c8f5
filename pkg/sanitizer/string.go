package sanitizer

import "strings"

// collapseSpace trims s and folds each run of whitespace into one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SanitizeName cleans a person's display name the same way as free text.
func SanitizeName(name string) string {
	return SanitizeText(name)
}
