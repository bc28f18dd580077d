// Package gridhtml serves product listings from HTML grid snapshots on
// disk. A snapshot tree looks like
//
//	<dir>/<source>/<unit>.html
//
// where each file holds one category page as rendered by the retailer.
// Snapshots are produced upstream by the fetching side; this feed only
// parses, so runs are reproducible and testable offline.
package gridhtml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/apecorreia/ProductScraper/internal/entity"
)

// Feed reads one retailer's snapshot directory.
type Feed struct {
	dir    string
	source string
}

func NewFeed(dir, source string) *Feed {
	return &Feed{dir: dir, source: source}
}

func (f *Feed) Source() string { return f.source }

// Units lists the snapshot files present for this source, sorted so unit
// order is stable run to run.
func (f *Feed) Units(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(f.dir, f.source))
	if err != nil {
		return nil, fmt.Errorf("listing snapshots for %s: %w", f.source, err)
	}

	var units []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		units = append(units, strings.TrimSuffix(e.Name(), ".html"))
	}
	sort.Strings(units)
	return units, nil
}

// Fetch parses one snapshot and emits its product tiles in document order.
func (f *Feed) Fetch(ctx context.Context, unit string, emit func(entity.RawRecord) error) error {
	path := filepath.Join(f.dir, f.source, unit+".html")
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return fmt.Errorf("parsing snapshot %s: %w", path, err)
	}

	var emitErr error
	doc.Find(".product-tile").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if ctx.Err() != nil {
			emitErr = ctx.Err()
			return false
		}

		raw := entity.RawRecord{
			Source:              f.source,
			Category:            attrOr(s, "data-category", unit),
			SubCategory:         s.AttrOr("data-subcategory", ""),
			Name:                text(s, ".product-name"),
			Brand:               text(s, ".product-brand"),
			QuantityText:        text(s, ".product-quantity"),
			PrimaryPrice:        text(s, ".price .value"),
			PrimaryPriceUnit:    text(s, ".price .unit"),
			SecondaryPrice:      text(s, ".price-secondary .value"),
			SecondaryPriceUnit:  text(s, ".price-secondary .unit"),
			BeforeDiscountPrice: text(s, ".price-before-discount"),
		}
		if img := s.Find("img").First(); img.Length() > 0 {
			raw.ImageURL, _ = img.Attr("src")
		}

		// A tile with no name is markup noise, not a listing.
		if raw.Name == "" {
			return true
		}
		if err := emit(raw); err != nil {
			emitErr = err
			return false
		}
		return true
	})
	return emitErr
}

func text(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}

func attrOr(s *goquery.Selection, name, fallback string) string {
	if v := s.AttrOr(name, ""); v != "" {
		return v
	}
	return fallback
}
