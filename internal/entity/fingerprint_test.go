package entity

import "testing"

func TestComputeFingerprintIgnoresPrice(t *testing.T) {
	a := &Record{
		Raw:               RawRecord{Source: "continente"},
		CanonicalCategory: "dairy",
		Name:              "Leite Meio Gordo",
		Quantity:          Quantity{Value: 1000, Unit: "ml", Items: 1, Total: 1000},
		PrimaryPrice:      0.99,
	}
	b := &Record{
		Raw:               RawRecord{Source: "continente"},
		CanonicalCategory: "dairy",
		Name:              "  leite   meio gordo ",
		Quantity:          Quantity{Value: 1000, Unit: "ml", Items: 1, Total: 1000},
		PrimaryPrice:      1.29,
	}
	if ComputeFingerprint(a) != ComputeFingerprint(b) {
		t.Fatal("price and formatting noise must not change the fingerprint")
	}
}

func TestComputeFingerprintDistinguishesContent(t *testing.T) {
	base := Record{
		Raw:               RawRecord{Source: "auchan"},
		CanonicalCategory: "drinks",
		Name:              "Cerveja",
		Quantity:          Quantity{Value: 330, Unit: "ml", Items: 6, Total: 1980},
	}

	otherSource := base
	otherSource.Raw.Source = "continente"
	otherQty := base
	otherQty.Quantity.Items = 12
	otherName := base
	otherName.Name = "Cerveja Preta"

	fp := ComputeFingerprint(&base)
	for name, r := range map[string]Record{
		"source":   otherSource,
		"quantity": otherQty,
		"name":     otherName,
	} {
		if ComputeFingerprint(&r) == fp {
			t.Fatalf("changing %s must change the fingerprint", name)
		}
	}
}
