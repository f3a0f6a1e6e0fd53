package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillbridge/tillbridge/internal/shared"
)

func TestParseScaleBarcode(t *testing.T) {
	reading, err := ParseScaleBarcode("212100500300")
	require.NoError(t, err)
	require.Equal(t, "2121", reading.ScaleCode)
	require.InDelta(t, 0.500, reading.WeightKg, 1e-9)
	require.InDelta(t, 0.300, reading.Rate, 1e-9)
	require.InDelta(t, 0.150, reading.Total, 1e-9)
}

func TestParseScaleBarcodeRoundsTotal(t *testing.T) {
	// 1.234 kg at 1.111 per kg is 1.370974, rounded to 1.371.
	reading, err := ParseScaleBarcode("200112341111")
	require.NoError(t, err)
	require.InDelta(t, 1.234, reading.WeightKg, 1e-9)
	require.InDelta(t, 1.111, reading.Rate, 1e-9)
	require.InDelta(t, 1.371, reading.Total, 1e-9)
}

func TestParseScaleBarcodeRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		code string
	}{
		{"too short", "21210050030"},
		{"too long", "2121005003000"},
		{"non numeric", "2121005003ab"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScaleBarcode(tc.code)
			require.Error(t, err)
			require.True(t, errors.Is(err, shared.ErrValidation))
		})
	}
}

func TestParseScaleBarcodeZeroWeight(t *testing.T) {
	reading, err := ParseScaleBarcode("212100000300")
	require.NoError(t, err)
	require.Zero(t, reading.WeightKg)
	require.Zero(t, reading.Total)
}
