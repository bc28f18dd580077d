package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/apecorreia/ProductScraper/internal/entity"
	"github.com/apecorreia/ProductScraper/internal/repository"
)

// Uncategorized is the sentinel canonical category for raw strings with no
// mapping. Such records still commit; the miss is a data-quality event, not
// a pipeline failure.
const Uncategorized = "uncategorized"

var fieldNoise = regexp.MustCompile(`[\s/€]+`)

// Mapping is the on-disk format of the versioned category mapping table,
// keyed by source, then by cleaned raw string.
type Mapping struct {
	Version string                   `json:"version"`
	Sources map[string]SourceMapping `json:"sources"`
}

type SourceMapping struct {
	Categories    map[string]string `json:"categories"`
	SubCategories map[string]string `json:"sub_categories"`
}

// Normalizer maps raw (source, category, sub-category) strings onto the
// canonical taxonomy. The mapping is loaded once per run and never mutated.
type Normalizer struct {
	mapping Mapping
	diags   repository.DiagnosticsRepository
	logger  *zap.Logger
}

// Load reads the mapping table from path and builds a Normalizer.
func Load(path string, diags repository.DiagnosticsRepository, logger *zap.Logger) (*Normalizer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category mapping: %w", err)
	}
	var m Mapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing category mapping: %w", err)
	}
	logger.Info("category mapping loaded",
		zap.String("version", m.Version),
		zap.Int("sources", len(m.Sources)))
	return New(m, diags, logger), nil
}

// New builds a Normalizer from an in-memory mapping.
func New(m Mapping, diags repository.DiagnosticsRepository, logger *zap.Logger) *Normalizer {
	lowered := Mapping{Version: m.Version, Sources: make(map[string]SourceMapping, len(m.Sources))}
	for src, sm := range m.Sources {
		ls := SourceMapping{
			Categories:    make(map[string]string, len(sm.Categories)),
			SubCategories: make(map[string]string, len(sm.SubCategories)),
		}
		for k, v := range sm.Categories {
			ls.Categories[Clean(k)] = v
		}
		for k, v := range sm.SubCategories {
			ls.SubCategories[Clean(k)] = v
		}
		lowered.Sources[strings.ToLower(src)] = ls
	}
	return &Normalizer{mapping: lowered, diags: diags, logger: logger}
}

// Version returns the mapping table version string.
func (n *Normalizer) Version() string { return n.mapping.Version }

// Normalize resolves the canonical category and sub-category for a raw pair.
// A missing mapping falls back to Uncategorized (category) or the cleaned
// raw string (sub-category) and appends a CategoryInconsistency diagnostic.
func (n *Normalizer) Normalize(ctx context.Context, source, rawCat, rawSub string) (string, string) {
	src := n.mapping.Sources[strings.ToLower(source)]
	cleanCat, cleanSub := Clean(rawCat), Clean(rawSub)

	cat, catOK := src.Categories[cleanCat]
	sub, subOK := src.SubCategories[cleanSub]
	if !catOK {
		cat = Uncategorized
	}
	if !subOK {
		sub = cleanSub
	}

	if !catOK || !subOK {
		d := entity.CategoryInconsistency{
			Source:         source,
			RawCategory:    rawCat,
			RawSubCategory: rawSub,
			At:             time.Now().UTC(),
		}
		if err := n.diags.RecordInconsistency(ctx, d); err != nil {
			n.logger.Warn("failed to record category inconsistency",
				zap.String("source", source), zap.Error(err))
		}
	}

	return cat, sub
}

// Clean lowercases a raw field and collapses whitespace, slashes and
// currency noise, mirroring how sources format their strings.
func Clean(s string) string {
	return strings.TrimSpace(fieldNoise.ReplaceAllString(strings.ToLower(s), " "))
}
