package usecase

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// unitDef maps a unit spelling to its category, base-unit factor and canonical spelling
type unitDef struct {
	category domain.SizeCategory
	factor   float64
	canon    string
}

var baseUnits = map[domain.SizeCategory]string{
	domain.CategoryVolume: "ml",
	domain.CategoryWeight: "g",
	domain.CategoryCount:  "ct",
}

var unitTable = map[string]unitDef{
	// Volume, base millilitres
	"ml": {domain.CategoryVolume, 1, "ml"}, "milliliter": {domain.CategoryVolume, 1, "ml"},
	"milliliters": {domain.CategoryVolume, 1, "ml"}, "millilitre": {domain.CategoryVolume, 1, "ml"},
	"millilitres": {domain.CategoryVolume, 1, "ml"},
	"cl":          {domain.CategoryVolume, 10, "cl"},
	"l":           {domain.CategoryVolume, 1000, "l"}, "lt": {domain.CategoryVolume, 1000, "l"},
	"ltr": {domain.CategoryVolume, 1000, "l"}, "liter": {domain.CategoryVolume, 1000, "l"},
	"liters": {domain.CategoryVolume, 1000, "l"}, "litre": {domain.CategoryVolume, 1000, "l"},
	"litres": {domain.CategoryVolume, 1000, "l"},
	"pt":     {domain.CategoryVolume, 473.176, "pint"}, "pint": {domain.CategoryVolume, 473.176, "pint"},
	"pints": {domain.CategoryVolume, 473.176, "pint"},
	"qt":    {domain.CategoryVolume, 946.353, "quart"}, "quart": {domain.CategoryVolume, 946.353, "quart"},
	"quarts": {domain.CategoryVolume, 946.353, "quart"},
	"gal":    {domain.CategoryVolume, 3785.41, "gallon"}, "gallon": {domain.CategoryVolume, 3785.41, "gallon"},
	"gallons": {domain.CategoryVolume, 3785.41, "gallon"},
	"fl oz":   {domain.CategoryVolume, 29.5735, "fl oz"}, "floz": {domain.CategoryVolume, 29.5735, "fl oz"},
	"fluid ounce": {domain.CategoryVolume, 29.5735, "fl oz"}, "fluid ounces": {domain.CategoryVolume, 29.5735, "fl oz"},

	// Weight, base grams
	"mg": {domain.CategoryWeight, 0.001, "mg"},
	"g":  {domain.CategoryWeight, 1, "g"}, "gr": {domain.CategoryWeight, 1, "g"},
	"gram": {domain.CategoryWeight, 1, "g"}, "grams": {domain.CategoryWeight, 1, "g"},
	"kg": {domain.CategoryWeight, 1000, "kg"}, "kilo": {domain.CategoryWeight, 1000, "kg"},
	"kilos": {domain.CategoryWeight, 1000, "kg"}, "kilogram": {domain.CategoryWeight, 1000, "kg"},
	"kilograms": {domain.CategoryWeight, 1000, "kg"},
	"oz":        {domain.CategoryWeight, 28.3495, "oz"}, "ounce": {domain.CategoryWeight, 28.3495, "oz"},
	"ounces": {domain.CategoryWeight, 28.3495, "oz"},
	"lb":     {domain.CategoryWeight, 453.592, "lb"}, "lbs": {domain.CategoryWeight, 453.592, "lb"},
	"pound": {domain.CategoryWeight, 453.592, "lb"}, "pounds": {domain.CategoryWeight, 453.592, "lb"},

	// Count, base items
	"pack": {domain.CategoryCount, 1, "pack"}, "packs": {domain.CategoryCount, 1, "pack"},
	"pk": {domain.CategoryCount, 1, "pack"}, "ct": {domain.CategoryCount, 1, "ct"},
	"count": {domain.CategoryCount, 1, "ct"}, "each": {domain.CategoryCount, 1, "each"},
	"ea": {domain.CategoryCount, 1, "each"}, "pc": {domain.CategoryCount, 1, "ct"},
	"pcs": {domain.CategoryCount, 1, "ct"}, "piece": {domain.CategoryCount, 1, "ct"},
	"pieces": {domain.CategoryCount, 1, "ct"},
	"dozen":  {domain.CategoryCount, 12, "dozen"},
}

var (
	// "2L", "500 g", "6-pack", "2 pints", "1.5 fl. oz"
	sizeValueUnitPattern = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*-?\s*([a-z][a-z. ]*?)\.?$`)

	// "6 x 330ml", "4×100 g"
	multipackPattern = regexp.MustCompile(`^(\d+)\s*[x×*]\s*(.+)$`)

	// "pack of 6", "box of 12"
	packOfPattern = regexp.MustCompile(`^(?:pack|box|case|bag) of (\d+)$`)

	// a size token at the end of an item name, e.g. "Whole Milk 2L", "Eggs, 12 ct"
	trailingSizePattern = regexp.MustCompile(
		`(?i)[\s,(-]+((?:\d+\s*[x×]\s*)?\d+(?:[.,]\d+)?\s*-?\s*(?:fl\.?\s*oz|ml|cl|l|ltr|liters?|litres?|pints?|pt|quarts?|qt|gallons?|gal|mg|g|grams?|kg|oz|ounces?|lbs?|pounds?|pack|pk|ct|count|each|ea|pcs?|pieces?|dozen))\)?\s*$`,
	)

	unitSpacePattern = regexp.MustCompile(`\s+`)
)

// ParseSize converts a size string into its category base unit. The boolean is
// false when the string carries no recognizable size; callers must treat that
// as "unknown", never as zero.
func ParseSize(raw string) (domain.ParsedSize, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return domain.ParsedSize{}, false
	}

	if m := packOfPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil || n <= 0 {
			return domain.ParsedSize{}, false
		}
		return domain.ParsedSize{NormalizedValue: n, Unit: "ct", RawUnit: "pack", Category: domain.CategoryCount}, true
	}

	if m := multipackPattern.FindStringSubmatch(s); m != nil {
		count, err := strconv.ParseFloat(m[1], 64)
		if err != nil || count <= 0 {
			return domain.ParsedSize{}, false
		}
		inner, ok := ParseSize(m[2])
		if !ok {
			return domain.ParsedSize{}, false
		}
		inner.NormalizedValue *= count
		return inner, true
	}

	m := sizeValueUnitPattern.FindStringSubmatch(s)
	if m == nil {
		return domain.ParsedSize{}, false
	}

	value, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil || value <= 0 {
		return domain.ParsedSize{}, false
	}

	def, ok := lookupUnit(m[2])
	if !ok {
		return domain.ParsedSize{}, false
	}

	return domain.ParsedSize{
		NormalizedValue: value * def.factor,
		Unit:            baseUnits[def.category],
		RawUnit:         def.canon,
		Category:        def.category,
	}, true
}

func lookupUnit(token string) (unitDef, bool) {
	t := strings.ReplaceAll(token, ".", " ")
	t = strings.TrimSpace(unitSpacePattern.ReplaceAllString(t, " "))
	if def, ok := unitTable[t]; ok {
		return def, true
	}
	def, ok := unitTable[strings.ReplaceAll(t, " ", "")]
	return def, ok
}

// ExtractSize splits a trailing size token off an item name:
// "Whole Milk 2L" -> ("Whole Milk", "2L"). When no size is present the name is
// returned unchanged with an empty size.
func ExtractSize(name string) (string, string) {
	loc := trailingSizePattern.FindStringSubmatchIndex(name)
	if loc == nil {
		return strings.TrimSpace(name), ""
	}
	size := strings.TrimSpace(name[loc[2]:loc[3]])
	if _, ok := ParseSize(size); !ok {
		return strings.TrimSpace(name), ""
	}
	clean := strings.TrimSpace(strings.TrimRight(name[:loc[0]], " ,(-"))
	if clean == "" {
		return strings.TrimSpace(name), ""
	}
	return clean, size
}

// SizeKey returns the canonical ledger key for a size string: the base-unit
// magnitude for parseable sizes ("2L" and "2000 ml" both give "2000ml"),
// otherwise the trimmed lowercase text.
func SizeKey(raw string) string {
	if p, ok := ParseSize(raw); ok {
		v := math.Round(p.NormalizedValue*1000) / 1000
		return strconv.FormatFloat(v, 'f', -1, 64) + p.Unit
	}
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// RelativeSizeDifference returns |candidate-target|/target for comparable sizes
func RelativeSizeDifference(candidate, target domain.ParsedSize) (float64, bool) {
	if !candidate.Comparable(target) || target.NormalizedValue <= 0 {
		return 0, false
	}
	return math.Abs(candidate.NormalizedValue-target.NormalizedValue) / target.NormalizedValue, true
}
