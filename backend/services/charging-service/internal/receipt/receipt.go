// Package receipt renders charging history entries as PDF receipts.
package receipt

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

// RenderPDF renders a one-page receipt for rec.
func RenderPDF(rec models.SessionRecord) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Charging Receipt")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	lines := []string{
		fmt.Sprintf("Session: %s", rec.ID),
		fmt.Sprintf("Station: %s (%s)", rec.StationName, rec.StationID),
		fmt.Sprintf("Connector: %s", rec.ConnectorID),
		fmt.Sprintf("Started: %s", rec.StartedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("Ended: %s", rec.EndedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("Outcome: %s", rec.Outcome),
	}
	if rec.ReceiptID != "" {
		lines = append(lines, fmt.Sprintf("Backend receipt: %s", rec.ReceiptID))
	}
	for _, line := range lines {
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Item", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	rows := [][2]string{
		{"Energy (kWh)", fmt.Sprintf("%.2f", rec.EnergyKWh)},
		{fmt.Sprintf("Price (%s/kWh)", rec.Currency), fmt.Sprintf("%.2f", rec.PricePerKWh)},
		{fmt.Sprintf("Cost (%s)", rec.Currency), fmt.Sprintf("%.2f", rec.Cost)},
		{fmt.Sprintf("Balance after (%s)", rec.Currency), fmt.Sprintf("%.2f", rec.BalanceAfter)},
	}
	for _, row := range rows {
		pdf.CellFormat(60, 6, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, row[1], "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("receipt: render: %w", err)
	}
	return buf.Bytes(), nil
}
