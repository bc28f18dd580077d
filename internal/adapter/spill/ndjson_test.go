package spill

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apecorreia/ProductScraper/internal/entity"
	"github.com/apecorreia/ProductScraper/internal/repository"
)

func TestSpillRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewNDJSONWriter(dir)

	batch := []repository.CommitRecord{
		{Record: &entity.Record{
			Raw:          entity.RawRecord{Source: "continente", Name: "Leite Mimosa"},
			Name:         "leite mimosa",
			Brand:        "mimosa",
			Quantity:     entity.Quantity{Value: 1000, Unit: "ml", Items: 1, Total: 1000},
			PrimaryPrice: 0.99,
			Fingerprint:  "fp-milk",
			ScrapedAt:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		}},
		{Record: &entity.Record{
			Raw:          entity.RawRecord{Source: "continente", Name: "Cerveja Sagres"},
			Fingerprint:  "fp-beer",
			PrimaryPrice: 3.79,
		}, PriceUpdate: true},
	}

	path, err := w.Spill(context.Background(), batch)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "spill-continente-"))

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, batch[0].Record, got[0].Record)
	assert.False(t, got[0].PriceUpdate)
	assert.Equal(t, "fp-beer", got[1].Record.Fingerprint)
	assert.True(t, got[1].PriceUpdate)
}

func TestSpillCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "overflow")
	w := NewNDJSONWriter(dir)

	_, err := w.Spill(context.Background(), []repository.CommitRecord{
		{Record: &entity.Record{Fingerprint: "fp"}},
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
