package extract

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/apecorreia/ProductScraper/internal/entity"
)

// BrandExtractor isolates a brand token from product name text using a
// known-brand list; longest match wins. When no known brand appears, the
// leading capitalized token of the name is used as a heuristic.
type BrandExtractor struct {
	brands []string // lowercase, longest first
}

// NewBrandExtractor builds an extractor over the given brand list.
func NewBrandExtractor(brands []string) *BrandExtractor {
	cleaned := make([]string, 0, len(brands))
	for _, b := range brands {
		if b = strings.TrimSpace(b); b != "" {
			cleaned = append(cleaned, strings.ToLower(b))
		}
	}
	sort.Slice(cleaned, func(i, j int) bool { return len(cleaned[i]) > len(cleaned[j]) })
	return &BrandExtractor{brands: cleaned}
}

// LoadBrands reads a brand list file, one brand per line. Blank lines and
// lines starting with '#' are ignored.
func LoadBrands(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening brand list: %w", err)
	}
	defer f.Close()

	var brands []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		brands = append(brands, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading brand list: %w", err)
	}
	return brands, nil
}

// Extract returns the brand found in name. Known brands are matched on word
// boundaries, longest first. The fallback takes the leading token of the
// name when it starts with an upper-case letter. Failing both, an
// *entity.ExtractionError is returned with an empty brand.
func (e *BrandExtractor) Extract(name string) (string, error) {
	lower := strings.ToLower(name)
	for _, b := range e.brands {
		if containsWord(lower, b) {
			return b, nil
		}
	}

	fields := strings.Fields(name)
	if len(fields) > 0 {
		first := []rune(fields[0])
		if unicode.IsUpper(first[0]) {
			return strings.ToLower(fields[0]), nil
		}
	}

	return "", &entity.ExtractionError{Field: "brand", Input: name}
}

// containsWord reports whether sub occurs in s bounded by non-letter runes.
// Boundaries are decoded as runes, not bytes, so an accented neighbour like
// the ú in "açúcar" still counts as a letter.
func containsWord(s, sub string) bool {
	for start := 0; ; {
		i := strings.Index(s[start:], sub)
		if i < 0 {
			return false
		}
		i += start

		before := true
		if i > 0 {
			r, _ := utf8.DecodeLastRuneInString(s[:i])
			before = !isWordRune(r)
		}
		after := true
		if end := i + len(sub); end < len(s) {
			r, _ := utf8.DecodeRuneInString(s[end:])
			after = !isWordRune(r)
		}
		if before && after {
			return true
		}
		start = i + len(sub)
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
