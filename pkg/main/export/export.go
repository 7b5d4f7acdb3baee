// Package export writes list rows to downloadable files.
package export

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/datatable"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/goccy/go-json"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	JSON Format = "json"
	PDF  Format = "pdf"
	DOCX Format = "docx"
)

// ErrUnsupportedFormat is returned for formats the dashboard does not render.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat maps a query value to a Format. Known but unrendered formats
// are returned together with ErrUnsupportedFormat.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case CSV, XLSX, JSON:
		return f, nil
	case "excel", "xls":
		return XLSX, nil
	case PDF, DOCX, "word":
		return f, unsupported(f)
	}
	return f, unsupported(f)
}

func unsupported(f Format) error {
	return apperrors.WrapWithMessage(apperrors.ErrClassExport, "export",
		"Le format "+strings.ToUpper(string(f))+" n'est pas disponible.", ErrUnsupportedFormat).
		WithContext("format", string(f))
}

// ContentType returns the mime type of f.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case JSON:
		return "application/json; charset=utf-8"
	}
	return "application/octet-stream"
}

// Cell is one exported value. Value keeps numbers typed for spreadsheets.
type Cell struct {
	Text  string
	Value any
}

// Table is the exported data of one list.
type Table struct {
	Title   string
	Keys    []string
	Headers []string
	Rows    [][]Cell
}

// FromColumns renders records through cols. Cells use the display text of
// the column; numeric columns also keep their raw value.
func FromColumns[T any](title string, cols datatable.Columns[T], records []T) Table {
	t := Table{
		Title:   title,
		Keys:    make([]string, len(cols)),
		Headers: make([]string, len(cols)),
		Rows:    make([][]Cell, len(records)),
	}
	for idx := range cols {
		t.Keys[idx] = cols[idx].Key
		t.Headers[idx] = cols[idx].Label
	}
	for ridx, rec := range records {
		row := make([]Cell, len(cols))
		for cidx := range cols {
			row[cidx].Text = cols[cidx].Display(rec)
			if cols[cidx].Numeric {
				row[cidx].Value = cols[cidx].Raw(rec)
			}
		}
		t.Rows[ridx] = row
	}
	return t
}

// Config tunes the writers.
type Config struct {
	// Delimiter of csv files. Defaults to ';' which spreadsheet software
	// expects with French locales.
	Delimiter rune
	// BOM prefixes csv files with a UTF-8 byte order mark.
	BOM bool
}

// Write renders t in format f to w.
func Write(w io.Writer, f Format, cfg Config, t Table) error {
	var err error
	switch f {
	case CSV:
		err = writeCSV(w, cfg, t)
	case XLSX:
		err = writeXLSX(w, t)
	case JSON:
		err = writeJSON(w, t)
	default:
		return unsupported(f)
	}
	if err != nil {
		return apperrors.WrapWithMessage(apperrors.ErrClassExport, "export_"+string(f),
			"L'export a échoué.", err).For(t.Title)
	}
	logger.LogDynamicany("debug", "export written", "format", string(f), "rows", len(t.Rows), "title", t.Title)
	return nil
}

// Filename returns a slugged file name stamped with now.
func Filename(title string, f Format, now time.Time) string {
	slug := logger.StringToSlug(title)
	if slug == "" {
		slug = "export"
	}
	return slug + "-" + now.Format("20060102-150405") + "." + string(f)
}

func writeCSV(w io.Writer, cfg Config, t Table) error {
	if cfg.BOM {
		if _, err := io.WriteString(w, "\ufeff"); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if cfg.Delimiter != 0 {
		cw.Comma = cfg.Delimiter
	}
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	line := make([]string, len(t.Headers))
	for _, row := range t.Rows {
		for idx := range row {
			line[idx] = row[idx].Text
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Sheet1"

func writeXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	for idx, h := range t.Headers {
		f.SetCellValue(sheetName, cellName(idx, 1), h)
	}
	if style, err := f.NewStyle(`{"font":{"bold":true}}`); err == nil && len(t.Headers) > 0 {
		f.SetCellStyle(sheetName, cellName(0, 1), cellName(len(t.Headers)-1, 1), style)
	}
	for ridx, row := range t.Rows {
		for cidx, c := range row {
			f.SetCellValue(sheetName, cellName(cidx, ridx+2), xlsxValue(c))
		}
	}
	return f.Write(w)
}

func xlsxValue(c Cell) any {
	switch v := c.Value.(type) {
	case int, int64, float64, float32, int32:
		return v
	case string:
		if n, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64); err == nil {
			return n
		}
	}
	return c.Text
}

// cellName returns the A1 reference of the 0-based column col and 1-based row.
func cellName(col, row int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name + strconv.Itoa(row)
}

func writeJSON(w io.Writer, t Table) error {
	out := make([]map[string]string, len(t.Rows))
	for ridx, row := range t.Rows {
		m := make(map[string]string, len(row))
		for cidx := range row {
			m[t.Keys[cidx]] = row[cidx].Text
		}
		out[ridx] = m
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
