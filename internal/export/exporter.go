// Package export renders log entries as PDF, CSV, JSON or Excel documents
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// Format is a supported export format
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatExcel Format = "xlsx"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatCSV, FormatJSON, FormatExcel:
		return f, nil
	case "excel":
		return FormatExcel, nil
	}
	return "", fmt.Errorf("unsupported export format: %s", s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// Filename returns the download name for an export made at t
func (f Format) Filename(t time.Time) string {
	return fmt.Sprintf("dns-logs_%s.%s", t.Format("20060102_150405"), f)
}

// Exporter dispatches entries to the renderer of a format
type Exporter struct {
	now func() time.Time
}

// NewExporter creates an exporter stamping documents with the current time
func NewExporter() *Exporter {
	return &Exporter{now: time.Now}
}

// Export lays out entries and writes them in the requested format
func (e *Exporter) Export(w io.Writer, format Format, entries []models.LogEntry, meta models.ReportMeta) error {
	doc := Layout(entries, meta, e.now())

	switch format {
	case FormatPDF:
		return WritePDF(w, doc)
	case FormatCSV:
		return WriteCSV(w, doc)
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatExcel:
		return WriteXLSX(w, doc)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

var headers = []string{"timestamp", "domain", "client", "activity", "status", "count"}

// tableRow uses the untruncated values; only the PDF is width bound
func tableRow(r Row) []string {
	e := r.Entry()
	return []string{
		r.Timestamp,
		e.DisplayDomain(),
		r.Client,
		e.DisplayActivity(),
		r.Status,
		strconv.Itoa(r.Count),
	}
}

// WriteCSV writes a header line and one record per row
func WriteCSV(w io.Writer, doc Document) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(headers); err != nil {
		return err
	}
	for _, r := range doc.Rows {
		if err := csvWriter.Write(tableRow(r)); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteJSON writes the document with its metadata
func WriteJSON(w io.Writer, doc Document) error {
	type jsonRow struct {
		Timestamp string `json:"timestamp"`
		Domain    string `json:"domain"`
		Client    string `json:"client"`
		Activity  string `json:"activity"`
		Status    string `json:"status"`
		Count     int    `json:"count"`
	}
	rows := make([]jsonRow, 0, len(doc.Rows))
	for _, r := range doc.Rows {
		v := tableRow(r)
		rows = append(rows, jsonRow{
			Timestamp: v[0], Domain: v[1], Client: v[2], Activity: v[3], Status: v[4], Count: r.Count,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]interface{}{
		"meta":     doc.Meta,
		"logs":     rows,
		"count":    len(rows),
		"exported": doc.GeneratedAt,
	})
}

// WriteXLSX writes a single sheet workbook with a styled header
func WriteXLSX(w io.Writer, doc Document) error {
	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Logs"
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := file.SetDocProps(&excelize.DocProperties{
		Title:   doc.Meta.Title,
		Creator: doc.Meta.Author,
		Subject: doc.Meta.Subject,
	}); err != nil {
		return err
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 2},
		},
	})
	if err != nil {
		return err
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		file.SetCellValue(sheet, cell, header)
		file.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	file.SetColWidth(sheet, "A", lastCol, 22)

	for i, r := range doc.Rows {
		values := tableRow(r)
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if col == len(values)-1 {
				file.SetCellValue(sheet, cell, r.Count)
				continue
			}
			file.SetCellValue(sheet, cell, value)
		}
	}

	if len(doc.Rows) > 0 {
		if err := file.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, len(doc.Rows)+1), nil); err != nil {
			return err
		}
	}

	return file.Write(w)
}
