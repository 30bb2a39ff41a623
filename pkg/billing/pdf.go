package billing

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/latitudexlabs/keycloak-events/pkg/razorpay"
)

// renderInvoicePDF lays out a gateway invoice as a single-page A4
// document: header, invoice metadata, billed-to block, subscription
// period, line-item table, and an amount summary.
func renderInvoicePDF(inv *razorpay.Invoice, contact BillingContact) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Invoice %s", inv.ID), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Invoice", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	metaRow(pdf, "Invoice ID", inv.ID)
	metaRow(pdf, "Status", inv.Status)
	if inv.IssuedAt > 0 {
		metaRow(pdf, "Issued At", formatGMT(inv.IssuedAt))
	}
	if inv.PaidAt > 0 {
		metaRow(pdf, "Paid At", formatGMT(inv.PaidAt))
	}
	if inv.PaymentID != "" {
		metaRow(pdf, "Payment ID", inv.PaymentID)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Billed To", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	name := contact.Name
	if name == "" && inv.CustomerDetails != nil {
		name = inv.CustomerDetails.Name
	}
	email := contact.Email
	if email == "" && inv.CustomerDetails != nil {
		email = inv.CustomerDetails.Email
	}
	for _, line := range []string{name, email, contact.Address, contact.LegalID} {
		if line != "" {
			pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	if inv.SubscriptionID != "" {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, "Subscription Info", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		metaRow(pdf, "Subscription ID", inv.SubscriptionID)
		if inv.BillingStart > 0 && inv.BillingEnd > 0 {
			metaRow(pdf, "Billing Period", fmt.Sprintf("%s to %s", formatGMT(inv.BillingStart), formatGMT(inv.BillingEnd)))
		}
		pdf.Ln(4)
	}

	symbol := inv.CurrencySymbol

	widths := []float64{70, 40, 20, 30, 30}
	headers := []string{"Item", "Description", "Qty", "Unit Price", "Amount"}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range inv.LineItems {
		pdf.CellFormat(widths[0], 8, item.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 8, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 8, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 8, money(symbol, item.UnitAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 8, money(symbol, item.Amount), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	summaryRow(pdf, "Subtotal", money(symbol, inv.Amount-inv.TaxAmount))
	summaryRow(pdf, "Tax", money(symbol, inv.TaxAmount))
	summaryRow(pdf, "Total Paid", money(symbol, inv.AmountPaid))
	summaryRow(pdf, "Amount Due", money(symbol, inv.AmountDue))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("invoice pdf rendering failed: %w", err)
	}
	return buf.Bytes(), nil
}

func metaRow(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(40, 6, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}

func summaryRow(pdf *fpdf.Fpdf, label, value string) {
	pdf.CellFormat(130, 7, "", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(30, 7, label, "1", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(30, 7, value, "1", 1, "R", false, 0, "")
}

// money formats a subunit amount as decimal currency units.
func money(symbol string, subunits int64) string {
	return fmt.Sprintf("%s%.2f", symbol, float64(subunits)/100.0)
}

func formatGMT(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("02 Jan 2006 15:04 GMT")
}
