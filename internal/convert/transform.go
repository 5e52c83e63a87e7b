package convert

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/domain"
)

// a4Paper is the excelize paper-size code for A4. The paper class is fixed;
// only orientation is request-controlled.
const a4Paper = 9

// Transformer applies the formatting rules to a validated workbook. It is
// stateless and safe for concurrent use.
type Transformer struct{}

// Apply parses data, formats every sheet according to opts, and returns the
// serialized result as a new byte slice. The input slice is never mutated.
// Formatting is a deterministic function of cell content and opts, so
// re-applying the transform changes nothing observable.
func (Transformer) Apply(data []byte, opts Options) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	defer f.Close()

	styleID, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: float64(opts.FontSizePt)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}

	for _, sheet := range f.GetSheetList() {
		if err := formatSheet(f, sheet, styleID, opts); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	return buf.Bytes(), nil
}

func formatSheet(f *excelize.File, sheet string, styleID int, opts Options) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}

	// Longest text per column, empty cells excluded.
	maxLen := map[int]int{}
	for r, row := range rows {
		for c, value := range row {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
			}
			if err := f.SetCellStyle(sheet, cell, cell, styleID); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
			}
			if n := utf8.RuneCountInString(value); n > maxLen[c] {
				maxLen[c] = n
			}
		}
	}

	for c, n := range maxLen {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
		}
		width := clamp(n+colPadding, minColWidth, maxColWidth)
		if err := f.SetColWidth(sheet, col, col, float64(width)); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
		}
	}

	orientation := "portrait"
	if opts.Landscape {
		orientation = "landscape"
	}
	size := a4Paper
	fitToWidth := 1
	fitToHeight := 0 // 0 = unconstrained height
	if err := f.SetPageLayout(sheet, &excelize.PageLayoutOptions{
		Orientation: &orientation,
		Size:        &size,
		FitToWidth:  &fitToWidth,
		FitToHeight: &fitToHeight,
	}); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}

	fitToPage := true
	if err := f.SetSheetProps(sheet, &excelize.SheetPropsOptions{
		FitToPage: &fitToPage,
	}); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	return nil
}
