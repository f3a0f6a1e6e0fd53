package sales

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const receiptWidth = 40

// RenderReceipt formats a sale as a plain-text till receipt. Amounts are
// printed with grouping separators through the locale-aware printer.
func RenderReceipt(sale *Sale, storeName string) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	center(&b, storeName)
	center(&b, p.Sprintf("Sale #%d", sale.ID))
	center(&b, sale.CreatedAt.Format("2006-01-02 15:04"))
	if sale.CustomerName != nil {
		center(&b, "Customer: "+*sale.CustomerName)
	}
	b.WriteString(strings.Repeat("-", receiptWidth) + "\n")

	for _, it := range sale.Items {
		b.WriteString(it.ItemName + "\n")
		line := p.Sprintf("  %.3f x %.3f", it.Quantity, it.Rate)
		amount := p.Sprintf("%.3f", it.Amount)
		b.WriteString(padBetween(line, amount))
		if it.OriginalAmount != nil {
			b.WriteString(padBetween("  discount", p.Sprintf("-%.3f", *it.OriginalAmount-it.Amount)))
		}
	}

	b.WriteString(strings.Repeat("-", receiptWidth) + "\n")
	b.WriteString(padBetween("TOTAL", p.Sprintf("%.3f", sale.TotalAmount)))

	if sale.Payment.Kind == PaymentSplit {
		for _, leg := range sale.Payment.Legs {
			b.WriteString(padBetween(leg.Method, p.Sprintf("%.3f", leg.Amount)))
		}
	} else {
		b.WriteString(padBetween(sale.Payment.Method, p.Sprintf("%.3f", sale.TotalAmount)))
	}
	return b.String()
}

// Widths are measured in runes, not bytes, so accented or Arabic names do
// not push the amount column out of line.
func center(b *strings.Builder, s string) {
	if pad := (receiptWidth - utf8.RuneCountInString(s)) / 2; pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString(s + "\n")
}

func padBetween(left, right string) string {
	gap := receiptWidth - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right + "\n"
}
