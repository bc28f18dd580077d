package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var priceGarbage = regexp.MustCompile(`[^\d,.\s]`)

// ParsePrice parses retailer price strings into a rounded float. It copes
// with both European and US separator conventions ("1.150,23", "1,150.23")
// and with repeated thousands separators; the last separator is assumed to
// be the decimal point. Unparseable input yields 0.
func ParsePrice(s string) float64 {
	s = strings.TrimSpace(priceGarbage.ReplaceAllString(s, ""))
	if s == "" {
		return 0
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")

	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ",") > 1:
		parts := strings.Split(s, ",")
		s = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	case strings.Count(s, ".") > 1:
		parts := strings.Split(s, ".")
		s = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	default:
		s = strings.ReplaceAll(s, ",", ".")
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return math.Round(v*100) / 100
}

// priceUnitAliases collapses the unit codes the retailers emit next to
// per-measure prices.
var priceUnitAliases = map[string]string{
	"kg": "kg", "kgm": "kg",
	"l": "lt", "ltr": "lt", "lt": "lt",
	"m": "metro", "mtr": "metro", "cm": "metro",
	"dos": "dose",
	"ro":  "un", "un": "un", "undefined": "un", "unknown": "un", "edt": "un",
}

// StandardizePriceUnit maps a raw price-unit code to its canonical form,
// returning the input unchanged when unknown.
func StandardizePriceUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimPrefix(u, "/")
	if std, ok := priceUnitAliases[u]; ok {
		return std
	}
	return u
}
