package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOption customises CSV output.
type CSVOption func(*CSVExporter)

// WithDelimiter switches the field separator, e.g. ';' for spreadsheets set
// to a locale that uses the comma as decimal mark.
func WithDelimiter(r rune) CSVOption {
	return func(e *CSVExporter) {
		if r != 0 {
			e.delimiter = r
		}
	}
}

// WithByteOrderMark prefixes the output with a UTF-8 BOM so Excel detects the encoding.
func WithByteOrderMark() CSVOption {
	return func(e *CSVExporter) { e.bom = true }
}

// CSVExporter writes each record through encoding/csv, so separators and
// quotes inside work order titles are escaped.
type CSVExporter struct {
	delimiter rune
	bom       bool
}

func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{delimiter: ','}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	var buf bytes.Buffer
	if e.bom {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	w.Comma = e.delimiter

	records := make([][]string, 0, len(data.Rows)+1)
	records = append(records, data.Headers)
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		records = append(records, record)
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
