package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/apecorreia/ProductScraper/internal/entity"
)

// Quantity grammar for Portuguese retail listings. Patterns are tried in
// order; the first match wins. Values are converted to base units (g, ml)
// so that "1.5kg" and "1500 g" normalize identically.

var noisePattern = regexp.MustCompile(`(emb\.?|quant\. mínima =|aprox\.?|grátis|aproximadamente|cerca de)`)

var dozenCases = map[string]int{
	"meia dúzia":  6,
	"uma dúzia":   12,
	"duas dúzias": 24,
	"três dúzias": 36,
}

type quantityPattern struct {
	re    *regexp.Regexp
	build func(m []string) entity.Quantity
}

var quantityPatterns = []quantityPattern{
	// "1,075 gr (38 un)" — total weight with item count
	{
		re: regexp.MustCompile(`(\d+[.,]?\d*)\s*(g|gr|ml|l|lt|cl|kg)\s*\((\d+)\s*un\)`),
		build: func(m []string) entity.Quantity {
			total := toBase(parseNum(m[1]), m[2])
			items := mustInt(m[3])
			return entity.Quantity{Value: total / float64(items), Unit: baseUnit(m[2]), Items: items, Total: total}
		},
	},
	// "peso escorrido 41 gr"
	{
		re: regexp.MustCompile(`peso\s*escorrido\s*(\d+[.,]?\d*)\s*(g|gr|ml|l|lt|cl|kg)`),
		build: func(m []string) entity.Quantity {
			v := toBase(parseNum(m[1]), m[2])
			return entity.Quantity{Value: v, Unit: baseUnit(m[2]), Items: 1, Total: v}
		},
	},
	// "12 x 1 lt", "6x330ml"
	{
		re: regexp.MustCompile(`(\d+)\s*x\s*(\d+[.,]?\d*)\s*(g|gr|ml|l|lt|cl|kg)`),
		build: func(m []string) entity.Quantity {
			items := mustInt(m[1])
			v := toBase(parseNum(m[2]), m[3])
			return entity.Quantity{Value: v, Unit: baseUnit(m[3]), Items: items, Total: float64(items) * v}
		},
	},
	// "100 un + 20" (bonus units included in the count)
	{
		re: regexp.MustCompile(`(\d+)\s*un\s*\+\s*(\d+)`),
		build: func(m []string) entity.Quantity {
			n := mustInt(m[1]) + mustInt(m[2])
			return entity.Quantity{Value: float64(n), Unit: "un", Items: 1, Total: float64(n)}
		},
	},
	// "2 x 10 un" (the "emb." noise is stripped beforehand)
	{
		re: regexp.MustCompile(`(\d+)\s*x\s*(\d+)\s*un`),
		build: func(m []string) entity.Quantity {
			items, per := mustInt(m[1]), mustInt(m[2])
			return entity.Quantity{Value: float64(per), Unit: "un", Items: items, Total: float64(items * per)}
		},
	},
	// "40 un"
	{
		re: regexp.MustCompile(`^(\d+)\s*un`),
		build: func(m []string) entity.Quantity {
			n := mustInt(m[1])
			return entity.Quantity{Value: float64(n), Unit: "un", Items: 1, Total: float64(n)}
		},
	},
	// "200g", "1.5kg"
	{
		re: regexp.MustCompile(`(\d+[.,]?\d*)\s*(g|gr|ml|l|lt|cl|kg)`),
		build: func(m []string) entity.Quantity {
			v := toBase(parseNum(m[1]), m[2])
			return entity.Quantity{Value: v, Unit: baseUnit(m[2]), Items: 1, Total: v}
		},
	},
	// "90 cápsulas", "20 comprimidos"
	{
		re: regexp.MustCompile(`(\d+)\s*(comprimidos|cápsulas|drageias|doses|saquetas|unidades|und)`),
		build: func(m []string) entity.Quantity {
			n := mustInt(m[1])
			return entity.Quantity{Value: float64(n), Unit: "un", Items: 1, Total: float64(n)}
		},
	},
}

// ParseQuantity parses a free-text quantity string into its structured form.
// On failure it returns the neutral single-unit quantity together with an
// *entity.ExtractionError; callers flag the record but keep it flowing.
func ParseQuantity(s string) (entity.Quantity, error) {
	cleaned := strings.TrimSpace(strings.ToLower(s))
	if cleaned == "" {
		return defaultQuantity(), &entity.ExtractionError{Field: "quantity", Input: s}
	}

	for phrase, n := range dozenCases {
		if strings.Contains(cleaned, phrase) {
			return entity.Quantity{Value: float64(n), Unit: "un", Items: 1, Total: float64(n)}, nil
		}
	}

	cleaned = strings.TrimSpace(noisePattern.ReplaceAllString(cleaned, " "))

	for _, p := range quantityPatterns {
		if m := p.re.FindStringSubmatch(cleaned); m != nil {
			return p.build(m), nil
		}
	}

	return defaultQuantity(), &entity.ExtractionError{Field: "quantity", Input: s}
}

func defaultQuantity() entity.Quantity {
	return entity.Quantity{Value: 1, Unit: "un", Items: 1, Total: 1}
}

// toBase converts a value in the given unit to grams or millilitres.
func toBase(v float64, unit string) float64 {
	switch strings.ToLower(unit) {
	case "kg", "l", "lt":
		return v * 1000
	case "cl":
		return v * 10
	default:
		return v
	}
}

func baseUnit(unit string) string {
	switch strings.ToLower(unit) {
	case "g", "gr", "kg":
		return "g"
	case "ml", "l", "lt", "cl":
		return "ml"
	default:
		return "un"
	}
}

func parseNum(s string) float64 {
	v, _ := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	return v
}

func mustInt(s string) int {
	n, _ := strconv.Atoi(s)
	if n == 0 {
		n = 1
	}
	return n
}
