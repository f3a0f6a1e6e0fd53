package sales

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestPadBetweenMeasuresRunes(t *testing.T) {
	line := strings.TrimSuffix(padBetween("كي نت", "12.500"), "\n")
	require.Equal(t, receiptWidth, utf8.RuneCountInString(line))
	require.True(t, strings.HasSuffix(line, "12.500"))
}

func TestReceiptCentersNonASCIIStoreName(t *testing.T) {
	store := "Büyük Bakkal"
	customer := "Crème Fraîche"
	sale := &Sale{
		ID:           42,
		TotalAmount:  1.250,
		CreatedAt:    time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC),
		CustomerName: &customer,
		Payment:      Payment{Kind: PaymentSingle, Method: "Cash"},
		Items: []SaleItem{
			{ItemCode: "ITM-CF", ItemName: customer, Quantity: 1, Rate: 1.250, Amount: 1.250},
		},
	}

	out := RenderReceipt(sale, store)
	lines := strings.Split(out, "\n")

	pad := (receiptWidth - utf8.RuneCountInString(store)) / 2
	require.Equal(t, strings.Repeat(" ", pad)+store, lines[0])

	// The total line stays a full receipt width wide.
	for _, line := range lines {
		if strings.HasPrefix(line, "TOTAL") {
			require.Equal(t, receiptWidth, utf8.RuneCountInString(line))
		}
	}
}
