package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets as the cover and index pages of a booklet.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// Render creates a PDF with a title block followed by the dataset as a table.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, "Generated "+e.now().UTC().Format(time.RFC1123), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	widths := columnWidths(pdf, data)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], 7, tr(truncate(pdf, row[header], widths[i])), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths sizes columns by their widest cell, scaled to the printable width.
func columnWidths(pdf *gofpdf.Fpdf, data Dataset) []float64 {
	const printable = 190.0
	pdf.SetFont("Arial", "", 9)
	widths := make([]float64, len(data.Headers))
	total := 0.0
	for i, header := range data.Headers {
		w := pdf.GetStringWidth(header) + 6
		for _, row := range data.Rows {
			if cw := pdf.GetStringWidth(row[header]) + 4; cw > w {
				w = cw
			}
		}
		widths[i] = w
		total += w
	}
	for i := range widths {
		widths[i] = widths[i] / total * printable
	}
	return widths
}

func truncate(pdf *gofpdf.Fpdf, value string, width float64) string {
	if pdf.GetStringWidth(value)+2 <= width {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...")+2 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
