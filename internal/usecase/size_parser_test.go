package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pricelens/backend/internal/domain"
)

func TestParseSize(t *testing.T) {
	testCases := []struct {
		raw      string
		value    float64
		unit     string
		rawUnit  string
		category domain.SizeCategory
	}{
		{"2L", 2000, "ml", "l", domain.CategoryVolume},
		{"500 ml", 500, "ml", "ml", domain.CategoryVolume},
		{"1.5 liters", 1500, "ml", "l", domain.CategoryVolume},
		{"1,5 l", 1500, "ml", "l", domain.CategoryVolume},
		{"2 pints", 946.352, "ml", "pint", domain.CategoryVolume},
		{"1 gallon", 3785.41, "ml", "gallon", domain.CategoryVolume},
		{"12 fl oz", 354.882, "ml", "fl oz", domain.CategoryVolume},
		{"12 fl. oz.", 354.882, "ml", "fl oz", domain.CategoryVolume},
		{"6 x 330ml", 1980, "ml", "ml", domain.CategoryVolume},
		{"500 g", 500, "g", "g", domain.CategoryWeight},
		{"1kg", 1000, "g", "kg", domain.CategoryWeight},
		{"16 oz", 453.592, "g", "oz", domain.CategoryWeight},
		{"2 lbs", 907.184, "g", "lb", domain.CategoryWeight},
		{"6-pack", 6, "ct", "pack", domain.CategoryCount},
		{"12 ct", 12, "ct", "ct", domain.CategoryCount},
		{"1 dozen", 12, "ct", "dozen", domain.CategoryCount},
		{"pack of 6", 6, "ct", "pack", domain.CategoryCount},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := ParseSize(tc.raw)
			if !assert.True(t, ok) {
				return
			}
			assert.InDelta(t, tc.value, got.NormalizedValue, 0.001)
			assert.Equal(t, tc.unit, got.Unit)
			assert.Equal(t, tc.rawUnit, got.RawUnit)
			assert.Equal(t, tc.category, got.Category)
		})
	}
}

func TestParseSize_Unparseable(t *testing.T) {
	for _, raw := range []string{"", "   ", "large", "family size", "half gallon", "0 ml", "2 parsecs", "ml"} {
		t.Run(raw, func(t *testing.T) {
			_, ok := ParseSize(raw)
			assert.False(t, ok)
		})
	}
}

func TestExtractSize(t *testing.T) {
	testCases := []struct {
		name      string
		wantClean string
		wantSize  string
	}{
		{"Whole Milk 2L", "Whole Milk", "2L"},
		{"Eggs, 12 ct", "Eggs", "12 ct"},
		{"Cheddar Cheese (8 oz)", "Cheddar Cheese", "8 oz"},
		{"Sparkling Water 6 x 330ml", "Sparkling Water", "6 x 330ml"},
		{"Orange Juice 1.5 liters", "Orange Juice", "1.5 liters"},
		{"Bananas", "Bananas", ""},
		{"7up", "7up", ""},
		{"2L", "2L", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clean, size := ExtractSize(tc.name)
			assert.Equal(t, tc.wantClean, clean)
			assert.Equal(t, tc.wantSize, size)
		})
	}
}

func TestSizeKey(t *testing.T) {
	assert.Equal(t, "2000ml", SizeKey("2L"))
	assert.Equal(t, SizeKey("2L"), SizeKey("2000 ml"))
	assert.Equal(t, SizeKey("16 oz"), SizeKey("1 lb"))
	assert.Equal(t, "3785.41ml", SizeKey("1 gallon"))
	assert.Equal(t, "family size", SizeKey("  Family   Size "))
	assert.Equal(t, "", SizeKey(""))
}

func TestRelativeSizeDifference(t *testing.T) {
	gallon, _ := ParseSize("1 gallon")
	fourLitres, _ := ParseSize("4 l")
	pound, _ := ParseSize("1 lb")

	diff, ok := RelativeSizeDifference(fourLitres, gallon)
	assert.True(t, ok)
	assert.InDelta(t, 0.0567, diff, 0.0001)

	_, ok = RelativeSizeDifference(pound, gallon)
	assert.False(t, ok, "weight and volume are not comparable")

	_, ok = RelativeSizeDifference(gallon, domain.ParsedSize{Category: domain.CategoryUnknown})
	assert.False(t, ok)
}
