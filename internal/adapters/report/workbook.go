// Package report renders a digest into a multi-sheet xlsx workbook.
package report

import (
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/okian/tradedigest/internal/domain/model"
	"github.com/okian/tradedigest/internal/engine"
	"github.com/xuri/excelize/v2"
)

// Sheet titles, in workbook order.
const (
	SheetBuyPlayers  = "Most Buy Players per Day"
	SheetSellPlayers = "Most Sell Players per Day"
	SheetSoldItems   = "Most Sold Items"
	SheetBoughtItems = "Most Bought Items"
)

// DownloadName is the file name offered to clients.
const DownloadName = "transaction_summary.xlsx"

const (
	defaultSheet = "Sheet1"
	widthPadding = 2
	widthFactor  = 1.2
	// builtin number format "0.00"
	numFmtTwoDecimals = 2
)

// Workbook is a rendered digest.
type Workbook struct {
	file *excelize.File
}

// New renders d. Player sheets are always present; item sheets only when the
// digest has items of that kind.
func New(d *engine.Digest) (*Workbook, error) {
	if d == nil {
		return nil, ErrNilDigest
	}
	f := excelize.NewFile()
	r := &renderer{file: f}

	if err := r.init(); err != nil {
		_ = f.Close()
		return nil, err
	}

	steps := []func() error{
		func() error { return r.players(SheetBuyPlayers, d, model.Purchase) },
		func() error { return r.players(SheetSellPlayers, d, model.Sale) },
	}
	if d.SoldItems.Len() > 0 {
		steps = append(steps, func() error { return r.items(SheetSoldItems, d, model.Sale) })
	}
	if d.BoughtItems.Len() > 0 {
		steps = append(steps, func() error { return r.items(SheetBoughtItems, d, model.Purchase) })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	return &Workbook{file: f}, nil
}

// Sheets returns the sheet names in order.
func (w *Workbook) Sheets() []string {
	return w.file.GetSheetList()
}

// Write streams the workbook to out and returns the number of bytes written.
func (w *Workbook) Write(out io.Writer) (int64, error) {
	n, err := w.file.WriteTo(out)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return n, nil
}

// SaveAs writes the workbook to path.
func (w *Workbook) SaveAs(path string) error {
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrRender, path, err)
	}
	return nil
}

// Close releases the workbook's temporary resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}

type renderer struct {
	file        *excelize.File
	headerStyle int
	amountStyle int
	sheets      int
}

func (r *renderer) init() error {
	var err error
	if r.headerStyle, err = r.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return fmt.Errorf("%w: header style: %w", ErrRender, err)
	}
	if r.amountStyle, err = r.file.NewStyle(&excelize.Style{NumFmt: numFmtTwoDecimals}); err != nil {
		return fmt.Errorf("%w: amount style: %w", ErrRender, err)
	}
	return nil
}

// sheet creates the next sheet, reusing the default one for the first.
func (r *renderer) sheet(name string, header ...string) (*sheetWriter, error) {
	if r.sheets == 0 {
		if err := r.file.SetSheetName(defaultSheet, name); err != nil {
			return nil, fmt.Errorf("%w: rename sheet: %w", ErrRender, err)
		}
	} else if _, err := r.file.NewSheet(name); err != nil {
		return nil, fmt.Errorf("%w: new sheet %q: %w", ErrRender, name, err)
	}
	r.sheets++

	s := &sheetWriter{file: r.file, name: name, widths: make(map[int]int)}
	for i, h := range header {
		if err := s.set(i+1, 1, h, h, r.headerStyle); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (r *renderer) players(name string, d *engine.Digest, kind model.Kind) error {
	s, err := r.sheet(name, "Date", "Player", "Amount")
	if err != nil {
		return err
	}

	row := 2
	for date, entries := range d.Players(kind) {
		if err := s.set(1, row, date, date, 0); err != nil {
			return err
		}
		col := 2
		for _, e := range entries {
			if err := s.set(col, row, e.Key, e.Key, 0); err != nil {
				return err
			}
			if err := s.set(col+1, row, e.Value.InexactFloat64(), e.Value.StringFixed(2), r.amountStyle); err != nil {
				return err
			}
			col += 2
		}
		row++
	}
	return s.fitColumns()
}

func (r *renderer) items(name string, d *engine.Digest, kind model.Kind) error {
	s, err := r.sheet(name, "Date", name)
	if err != nil {
		return err
	}

	row := 2
	for date, entries := range d.Items(kind) {
		if err := s.set(1, row, date, date, 0); err != nil {
			return err
		}
		for i, e := range entries {
			text := e.Key + "x" + strconv.Itoa(e.Value)
			if err := s.set(i+2, row, text, text, 0); err != nil {
				return err
			}
		}
		row++
	}
	return s.fitColumns()
}

// sheetWriter tracks the longest data cell per column; the header row does not count.
type sheetWriter struct {
	file   *excelize.File
	name   string
	widths map[int]int
}

func (s *sheetWriter) set(col, row int, value any, text string, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	if err := s.file.SetCellValue(s.name, cell, value); err != nil {
		return fmt.Errorf("%w: %s!%s: %w", ErrRender, s.name, cell, err)
	}
	if style != 0 {
		if err := s.file.SetCellStyle(s.name, cell, cell, style); err != nil {
			return fmt.Errorf("%w: style %s!%s: %w", ErrRender, s.name, cell, err)
		}
	}
	if row > 1 {
		s.widths[col] = max(s.widths[col], utf8.RuneCountInString(text))
	}
	return nil
}

func (s *sheetWriter) fitColumns() error {
	for col, n := range s.widths {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
		if err := s.file.SetColWidth(s.name, name, name, float64(n+widthPadding)*widthFactor); err != nil {
			return fmt.Errorf("%w: width %s!%s: %w", ErrRender, s.name, name, err)
		}
	}
	return nil
}
