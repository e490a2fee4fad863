package core

import (
	"fmt"
	"time"
)

// MaxErrorPanelRows caps the rows listed in the preview error panel.
const MaxErrorPanelRows = 50

// PreviewSummary contains the summary counts for an upload preview.
type PreviewSummary struct {
	TotalRows   int `json:"totalRows"`
	ValidRows   int `json:"validRows"`
	InvalidRows int `json:"invalidRows"`
}

// RowError is one entry of the preview error panel.
type RowError struct {
	RowIndex int      `json:"rowIndex"`
	Name     string   `json:"name,omitempty"`
	Errors   []string `json:"errors"`
}

// Preview is the complete result of preparing a file for upload.
type Preview struct {
	Header           []string       `json:"header"`
	UnknownColumns   []string       `json:"unknownColumns,omitempty"`
	Rows             []Row          `json:"rows"`
	Summary          PreviewSummary `json:"summary"`
	ErrorPanel       []RowError     `json:"errorPanel"`
	MoreErrors       string         `json:"moreErrors,omitempty"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
}

// ValidProducts projects every valid row into a Product, in row order.
func (p *Preview) ValidProducts() []Product {
	products := make([]Product, 0, p.Summary.ValidRows)
	for _, row := range p.Rows {
		if row.Valid {
			products = append(products, NewProduct(row))
		}
	}
	return products
}

// Importer runs the tokenize, map and validate stages over a file.
type Importer struct {
	mapper    *Mapper
	validator *Validator
}

// NewImporter creates an importer using the given image rules.
func NewImporter(images ImageRules) *Importer {
	return &Importer{
		mapper:    NewMapper(images),
		validator: NewValidator(images),
	}
}

// Preview parses data and validates every row.
//
// It fails when the file is empty, when no header column is recognised,
// or when there are no data rows. Invalid rows are not an error; they are
// reported in the preview.
func (im *Importer) Preview(data []byte) (*Preview, error) {
	start := time.Now()

	header, rawRows, err := ParseCSV(data)
	if err != nil {
		return nil, err
	}

	var unknown []string
	known := 0
	for _, h := range header {
		if KnownHeader(h) {
			known++
		} else if h != "" {
			unknown = append(unknown, h)
		}
	}
	if known == 0 {
		return nil, ErrMissingHeader
	}
	if len(rawRows) == 0 {
		return nil, ErrNoDataRows
	}

	p := &Preview{
		Header:         header,
		UnknownColumns: unknown,
		Rows:           make([]Row, 0, len(rawRows)),
		ErrorPanel:     []RowError{},
	}

	for _, raw := range rawRows {
		fields := im.mapper.MapRow(header, raw.Values)
		row := im.validator.Validate(fields, raw.Line)
		p.Rows = append(p.Rows, row)

		p.Summary.TotalRows++
		if row.Valid {
			p.Summary.ValidRows++
			continue
		}
		p.Summary.InvalidRows++
		if len(p.ErrorPanel) < MaxErrorPanelRows {
			p.ErrorPanel = append(p.ErrorPanel, RowError{
				RowIndex: row.RowIndex,
				Name:     fields.String(FieldName),
				Errors:   row.Errors,
			})
		}
	}

	if extra := p.Summary.InvalidRows - len(p.ErrorPanel); extra > 0 {
		p.MoreErrors = fmt.Sprintf("...and %d more rows with errors", extra)
	}

	p.ProcessingTimeMs = time.Since(start).Milliseconds()
	return p, nil
}
