package csv

import "strings"

// utf8BOM may lead the first chunk of a file exported by spreadsheet tools.
const utf8BOM = "\uFEFF"

// StripBOM removes a leading UTF-8 byte order mark from s.
func StripBOM(s string) string {
	return strings.TrimPrefix(s, utf8BOM)
}
