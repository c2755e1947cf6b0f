package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// column x positions in millimetres
const (
	colTime     = 10.0
	colDomain   = 48.0
	colClient   = 118.0
	colActivity = 148.0
	colStatus   = 178.0
)

// WritePDF renders the document on A4 pages using the layout positions
func WritePDF(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(doc.Meta.Title, true)
	pdf.SetAuthor(doc.Meta.Author, true)
	pdf.SetSubject(doc.Meta.Subject, true)
	pdf.SetCreator("dnslog-viewer", true)
	pdf.SetAutoPageBreak(false, 0)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Text(colTime, 20, tr(doc.Meta.Title))

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(colTime, 35, fmt.Sprintf("Date: %s", doc.GeneratedAt.Format("02/01/2006")))
	pdf.Text(colTime, 45, fmt.Sprintf("Total entries: %d", len(doc.Rows)))

	pdf.SetFont("Helvetica", "B", 10)
	pdf.Text(colTime, 60, "Time")
	pdf.Text(colDomain, 60, "Domain")
	pdf.Text(colClient, 60, "Client")
	pdf.Text(colActivity, 60, "Activity")
	pdf.Text(colStatus, 60, "Status")
	pdf.SetLineWidth(0.5)
	pdf.Line(colTime, 65, 200, 65)

	pdf.SetFont("Helvetica", "", 9)
	page := 1
	for _, r := range doc.Rows {
		for page < r.Page {
			pdf.AddPage()
			page++
		}
		pdf.Text(colTime, r.Y, r.Timestamp)
		pdf.Text(colDomain, r.Y, tr(r.Domain))
		pdf.Text(colClient, r.Y, r.Client)
		pdf.Text(colActivity, r.Y, tr(r.Activity))
		pdf.Text(colStatus, r.Y, tr(r.Status))
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return pdf.Output(w)
}
