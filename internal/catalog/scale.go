package catalog

import (
	"fmt"
	"math"

	"github.com/tillbridge/tillbridge/internal/shared"
)

// ScaleReading is the decoded form of a weighing-scale barcode. The fixed
// 12-digit layout is: digits [0,4) item scale-code, [4,8) weight in grams,
// [8,12) rate in thousandths of the currency minor unit.
type ScaleReading struct {
	ScaleCode string  `json:"scale_code"`
	WeightKg  float64 `json:"weight_kg"`
	Rate      float64 `json:"rate"`
	Total     float64 `json:"total"`
}

// ParseScaleBarcode decodes a 12-digit scale barcode. Total is
// weight × rate rounded to 3 decimal places.
func ParseScaleBarcode(code string) (ScaleReading, error) {
	if len(code) != 12 {
		return ScaleReading{}, fmt.Errorf("%w: scale barcode must be 12 digits, got %d", shared.ErrValidation, len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ScaleReading{}, fmt.Errorf("%w: scale barcode must be numeric", shared.ErrValidation)
		}
	}

	grams := atoi4(code[4:8])
	rateMillis := atoi4(code[8:12])

	reading := ScaleReading{
		ScaleCode: code[0:4],
		WeightKg:  float64(grams) / 1000,
		Rate:      float64(rateMillis) / 1000,
	}
	reading.Total = round3(reading.WeightKg * reading.Rate)
	return reading, nil
}

func atoi4(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
