package columns

import (
	"testing"

	"pricelist/internal"
)

func TestMapExactHeaders(t *testing.T) {
	m := NewMapper()
	got := m.Map([]string{"SKU", "Description", "Price", "UOM"}, nil)
	want := map[internal.Field]int{
		internal.FieldSupplierSKU: 0,
		internal.FieldName:        1,
		internal.FieldPrice:       2,
		internal.FieldUOM:         3,
	}
	for f, idx := range want {
		c, ok := got.Get(f)
		if !ok || c.Index != idx || c.Confidence != 1.0 {
			t.Fatalf("%s: %+v ok=%v", f, c, ok)
		}
	}
	if len(got.UnmappedHeaders) != 0 {
		t.Fatalf("unmapped=%v", got.UnmappedHeaders)
	}
}

func TestMapFuzzyAndUnrelated(t *testing.T) {
	m := NewMapper()
	got := m.Map([]string{"Descriptoin", "xyz123"}, nil)
	c, ok := got.Get(internal.FieldName)
	if !ok || c.Index != 0 || c.Confidence < FuzzyThreshold || c.Confidence >= 1.0 {
		t.Fatalf("name mapping: %+v ok=%v", c, ok)
	}
	if len(got.UnmappedHeaders) != 1 || got.UnmappedHeaders[0] != "xyz123" {
		t.Fatalf("unmapped=%v", got.UnmappedHeaders)
	}
}

func TestMapMisspelledHeaderIsLowConfidence(t *testing.T) {
	m := NewMapper()
	got := m.Map([]string{"Prise"}, nil)
	c, ok := got.Get(internal.FieldPrice)
	if !ok || c.Confidence < FuzzyThreshold || c.Confidence >= LowConfidenceThreshold {
		t.Fatalf("price mapping: %+v ok=%v", c, ok)
	}
	v := ValidateMapping(got)
	if len(v.LowConfidence) != 1 || v.LowConfidence[0] != internal.FieldPrice {
		t.Fatalf("low confidence=%v", v.LowConfidence)
	}
}

func TestMapClaimsHeaderOnce(t *testing.T) {
	m := NewMapper()
	got := m.Map([]string{"Price", "Price"}, nil)
	c, ok := got.Get(internal.FieldPrice)
	if !ok || c.Index != 0 {
		t.Fatalf("price: %+v", c)
	}
	if len(got.UnmappedHeaders) != 1 {
		t.Fatalf("unmapped=%v", got.UnmappedHeaders)
	}
}

func TestMapManualOverrides(t *testing.T) {
	m := NewMapper()
	got := m.Map([]string{"Col A", "Col B", "Cost"}, map[internal.Field]string{
		internal.FieldSupplierSKU: "col a",
		internal.FieldName:        "Col B",
	})
	if c, _ := got.Get(internal.FieldSupplierSKU); c.Index != 0 || c.Confidence != 1.0 {
		t.Fatalf("sku override: %+v", c)
	}
	if c, _ := got.Get(internal.FieldName); c.Index != 1 {
		t.Fatalf("name override: %+v", c)
	}
	if c, ok := got.Get(internal.FieldPrice); !ok || c.Index != 2 {
		t.Fatalf("price: %+v", c)
	}
}

func TestMapMultiLanguage(t *testing.T) {
	m := NewMapper()
	got := m.Map([]string{"Artikelnummer", "Bezeichnung", "Preis", "Einheit", "Marke"}, nil)
	for _, f := range []internal.Field{internal.FieldSupplierSKU, internal.FieldName, internal.FieldPrice, internal.FieldUOM, internal.FieldBrand} {
		if _, ok := got.Get(f); !ok {
			t.Fatalf("%s not mapped: %+v", f, got)
		}
	}
}

func TestValidateMappingMissingRequired(t *testing.T) {
	m := NewMapper()
	v := ValidateMapping(m.Map([]string{"Item Desc", "xyz123"}, nil))
	if v.Valid {
		t.Fatalf("expected invalid mapping")
	}
	want := []internal.Field{internal.FieldSupplierSKU, internal.FieldPrice, internal.FieldUOM}
	if len(v.MissingRequired) != len(want) {
		t.Fatalf("missing=%v", v.MissingRequired)
	}
	for i, f := range want {
		if v.MissingRequired[i] != f {
			t.Fatalf("missing[%d]=%s want %s", i, v.MissingRequired[i], f)
		}
	}
}

func TestMapHashAndAbbreviatedHeaders(t *testing.T) {
	m := NewMapper()
	cases := []struct {
		name    string
		headers []string
		want    map[internal.Field]int
	}{
		{
			name:    "item hash",
			headers: []string{"Item #", "Item Description", "Price", "UOM"},
			want: map[internal.Field]int{
				internal.FieldSupplierSKU: 0,
				internal.FieldName:        1,
				internal.FieldPrice:       2,
				internal.FieldUOM:         3,
			},
		},
		{
			name:    "part hash and u/m",
			headers: []string{"Part #", "Description", "Price", "U/M"},
			want: map[internal.Field]int{
				internal.FieldSupplierSKU: 0,
				internal.FieldName:        1,
				internal.FieldPrice:       2,
				internal.FieldUOM:         3,
			},
		},
		{
			name:    "dealer cost",
			headers: []string{"Item No", "Description", "Dealer Cost", "Unit"},
			want: map[internal.Field]int{
				internal.FieldSupplierSKU: 0,
				internal.FieldName:        1,
				internal.FieldPrice:       2,
				internal.FieldUOM:         3,
			},
		},
		{
			name:    "nett",
			headers: []string{"Code", "Product", "Nett", "UOM"},
			want: map[internal.Field]int{
				internal.FieldSupplierSKU: 0,
				internal.FieldName:        1,
				internal.FieldPrice:       2,
				internal.FieldUOM:         3,
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := m.Map(tc.headers, nil)
			for f, idx := range tc.want {
				c, ok := got.Get(f)
				if !ok || c.Index != idx || c.Confidence != 1.0 {
					t.Fatalf("%s: %+v ok=%v", f, c, ok)
				}
			}
			if v := ValidateMapping(got); !v.Valid {
				t.Fatalf("missing=%v", v.MissingRequired)
			}
		})
	}
}

func TestMapPunctuationOnlyMatchIsBelowExact(t *testing.T) {
	m := NewMapper()
	got := m.Map([]string{"Item_Desc.", "Part#"}, nil)
	c, ok := got.Get(internal.FieldName)
	if !ok || c.Index != 0 || c.Confidence != punctuationMatch {
		t.Fatalf("name: %+v ok=%v", c, ok)
	}
	c, ok = got.Get(internal.FieldSupplierSKU)
	if !ok || c.Index != 1 || c.Confidence != punctuationMatch {
		t.Fatalf("sku: %+v ok=%v", c, ok)
	}
}
