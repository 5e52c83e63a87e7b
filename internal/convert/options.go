// Package convert implements the spreadsheet side of the pipeline: upload
// validation, conversion options, and the formatting transform applied
// before the document is handed to the renderer.
package convert

import (
	"strconv"
	"strings"
)

const (
	// MinFontSizePt and MaxFontSizePt bound the applied font size. Hard
	// policy, not configurable.
	MinFontSizePt = 6
	MaxFontSizePt = 72

	minColWidth = 8
	maxColWidth = 50
	colPadding  = 2
)

// Options are the per-request conversion parameters. They are derived once
// from the request fields and never change afterwards.
type Options struct {
	FontSizePt       int
	Landscape        bool
	SinglePageSheets bool
}

// ParseOptions builds Options from raw form values. Each field is clamped or
// defaulted independently: an absent, unparsable or non-positive font size
// falls back to defaultFontSize, anything else is clamped to [6,72]; the
// boolean fields default to true.
func ParseOptions(fontSize, landscape, singlePageSheets string, defaultFontSize int) Options {
	return Options{
		FontSizePt:       parseFontSize(fontSize, defaultFontSize),
		Landscape:        parseBoolDefaultTrue(landscape),
		SinglePageSheets: parseBoolDefaultTrue(singlePageSheets),
	}
}

func parseFontSize(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return clamp(n, MinFontSizePt, MaxFontSizePt)
}

func parseBoolDefaultTrue(raw string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return true
	}
	return b
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
