package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.StrictPolicy()

// StripMarkup returns input with every tag removed. Stored text is kept as
// submitted; this only decides whether any visible text remains.
func StripMarkup(input string) string {
	return sanitizer.Sanitize(input)
}
