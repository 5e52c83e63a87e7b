package handlers

import (
	"regexp"
	"strings"
)

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

	// Extensions stripped from the original name before the .pdf suffix is
	// appended. Matched case-insensitively, last one wins.
	spreadsheetExts = []string{".xlsx", ".xlsm", ".xltx", ".xls", ".ods"}
)

// PDFFilename derives the download filename from the uploaded name: the
// trailing spreadsheet extension is stripped, every character outside
// [A-Za-z0-9._-] becomes an underscore, and ".pdf" is appended. An empty
// result falls back to "document.pdf".
func PDFFilename(original string) string {
	base := original
	lower := strings.ToLower(base)
	for _, ext := range spreadsheetExts {
		if strings.HasSuffix(lower, ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}

	base = unsafeChars.ReplaceAllString(base, "_")
	if strings.Trim(base, "_") == "" {
		base = "document"
	}
	return base + ".pdf"
}
