package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apecorreia/ProductScraper/internal/adapter/memory"
)

func testMapping() Mapping {
	return Mapping{
		Version: "test-1",
		Sources: map[string]SourceMapping{
			"continente": {
				Categories:    map[string]string{"laticinios-ovos": "Laticínios", "Bebidas / Garrafeira": "Bebidas"},
				SubCategories: map[string]string{"leite": "Leite"},
			},
		},
	}
}

func TestNormalizeMapped(t *testing.T) {
	diags := memory.NewDiagnosticsStore()
	n := New(testMapping(), diags, zap.NewNop())

	cat, sub := n.Normalize(context.Background(), "continente", "laticinios-ovos", "Leite")
	assert.Equal(t, "Laticínios", cat)
	assert.Equal(t, "Leite", sub)
	assert.Empty(t, diags.Inconsistencies)

	// Raw keys are cleaned before lookup: slashes and case collapse.
	cat, _ = n.Normalize(context.Background(), "CONTINENTE", "bebidas garrafeira", "leite")
	assert.Equal(t, "Bebidas", cat)
}

func TestNormalizeUnknownCategory(t *testing.T) {
	diags := memory.NewDiagnosticsStore()
	n := New(testMapping(), diags, zap.NewNop())

	cat, sub := n.Normalize(context.Background(), "continente", "bilheteira", "espetáculos")
	assert.Equal(t, Uncategorized, cat)
	assert.Equal(t, "espetáculos", sub)

	require.Len(t, diags.Inconsistencies, 1)
	assert.Equal(t, "continente", diags.Inconsistencies[0].Source)
	assert.Equal(t, "bilheteira", diags.Inconsistencies[0].RawCategory)
	assert.False(t, diags.Inconsistencies[0].At.IsZero())
}

func TestNormalizeUnknownSource(t *testing.T) {
	diags := memory.NewDiagnosticsStore()
	n := New(testMapping(), diags, zap.NewNop())

	cat, _ := n.Normalize(context.Background(), "lidl", "laticinios-ovos", "leite")
	assert.Equal(t, Uncategorized, cat)
	assert.Len(t, diags.Inconsistencies, 1)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "leite meio gordo", Clean("  Leite / Meio€Gordo "))
}
