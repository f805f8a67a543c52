package parser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/titlegest/internal/textstream"
	"github.com/xuri/excelize/v2"
)

// defaultCellFontSize is Excel's default body font size.
const defaultCellFontSize = 11

// XLSXParser handles .xlsx workbooks. Each sheet is a page, each row a line
// and each cell's words carry the cell style's font size.
type XLSXParser struct {
	Options Options
}

func (p *XLSXParser) Parse(ctx context.Context, r io.Reader, filename string) (textstream.Source, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sizes := make(map[int]float64)
	b := textstream.NewBuilder()
	for i, sheet := range f.GetSheetList() {
		page := i + 1
		if !p.Options.pageInRange(page) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		b.StartPage(page)
		for r, row := range rows {
			wrote := false
			for c, value := range row {
				if strings.TrimSpace(value) == "" {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return nil, err
				}
				if wrote {
					b.Word()
				}
				b.Words(value, cellFontSize(f, sheet, cell, sizes))
				wrote = true
			}
			if wrote {
				b.Line()
			}
		}
		b.EndPage()
	}
	return b.Source(), nil
}

// cellFontSize looks up the font size of a cell's style, caching by style ID.
func cellFontSize(f *excelize.File, sheet, cell string, cache map[int]float64) float64 {
	id, err := f.GetCellStyle(sheet, cell)
	if err != nil {
		return defaultCellFontSize
	}
	if size, ok := cache[id]; ok {
		return size
	}
	size := float64(defaultCellFontSize)
	if style, err := f.GetStyle(id); err == nil && style.Font != nil && style.Font.Size > 0 {
		size = style.Font.Size
	}
	cache[id] = size
	return size
}
