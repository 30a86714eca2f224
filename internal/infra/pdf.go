package infra

// pdf.go renders the one-page shift summary with go-pdf/fpdf:
//   - store header and cashier name
//   - opened / closed timestamps
//   - opening cash, expected cash, declared closing cash and difference
//   - closing notes

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// ShiftSummary is the data printed on the shift report.
type ShiftSummary struct {
	StoreName    string
	CashierName  string
	CashierEmail string
	OpenedAt     time.Time
	ClosedAt     *time.Time
	OpeningCash  decimal.Decimal
	ExpectedCash decimal.Decimal
	ClosingCash  *decimal.Decimal
	Notes        string
}

// RenderShiftPDF writes the summary as an A5 PDF and returns its bytes.
func RenderShiftPDF(s ShiftSummary) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, s.StoreName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Shift summary", "", 1, "C", false, 0, "")
	pdf.Ln(3)
	pdf.Line(10, pdf.GetY(), pageW-10, pdf.GetY())
	pdf.Ln(3)

	// ── Details ──────────────────────────────────────────────────────────────
	labelW := contentW * 0.45
	valueW := contentW - labelW
	row := func(label, value string, bold bool) {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(labelW, 6, label, "", 0, "L", false, 0, "")
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(valueW, 6, value, "", 1, "R", false, 0, "")
	}

	row("Cashier", s.CashierName, false)
	if s.CashierEmail != "" {
		row("Email", s.CashierEmail, false)
	}
	row("Opened at", s.OpenedAt.Format("02/01/2006 15:04"), false)
	closed := "still open"
	if s.ClosedAt != nil {
		closed = s.ClosedAt.Format("02/01/2006 15:04")
	}
	row("Closed at", closed, false)
	pdf.Ln(2)

	row("Opening cash", s.OpeningCash.StringFixed(2), false)
	row("Expected cash", s.ExpectedCash.StringFixed(2), false)
	if s.ClosingCash != nil {
		row("Closing cash", s.ClosingCash.StringFixed(2), true)
		row("Difference", s.ClosingCash.Sub(s.ExpectedCash).StringFixed(2), true)
	}

	if s.Notes != "" {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW, 6, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 5, s.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render shift summary: %w", err)
	}
	return buf.Bytes(), nil
}
