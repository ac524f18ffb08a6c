package schema

import (
	"strings"
	"testing"
)

func TestResolveCategory(t *testing.T) {
	tax, err := LoadTaxonomy()
	if err != nil {
		t.Fatalf("LoadTaxonomy() error = %v", err)
	}

	pair, err := tax.ResolveCategory("boots")
	if err != nil {
		t.Fatalf("ResolveCategory(boots) error = %v", err)
	}
	if pair.Primary != "shoes" || pair.Secondary != "boots" {
		t.Errorf("ResolveCategory(boots) = %+v, want shoes/boots", pair)
	}

	pair, err = tax.ResolveCategory("outerwear")
	if err != nil {
		t.Fatalf("ResolveCategory(outerwear) error = %v", err)
	}
	if pair.Primary != "outerwear" || pair.Secondary != "" {
		t.Errorf("ResolveCategory(outerwear) = %+v, want bare primary", pair)
	}

	if _, err := tax.ResolveCategory("furniture"); err == nil {
		t.Error("ResolveCategory(furniture) = nil error, want unknown category")
	} else if !strings.Contains(err.Error(), "furniture") {
		t.Errorf("error %q does not name the rejected value", err)
	}
}

func TestValidPair(t *testing.T) {
	tax, err := LoadTaxonomy()
	if err != nil {
		t.Fatalf("LoadTaxonomy() error = %v", err)
	}

	tests := []struct {
		pair Pair
		want bool
	}{
		{Pair{Primary: "shoes", Secondary: "boots"}, true},
		{Pair{Primary: "shoes"}, true},
		{Pair{Primary: "shoes", Secondary: "coat"}, false},
		{Pair{Primary: "furniture", Secondary: "chair"}, false},
	}
	for _, tt := range tests {
		if got := tax.ValidPair(tt.pair); got != tt.want {
			t.Errorf("ValidPair(%+v) = %v, want %v", tt.pair, got, tt.want)
		}
	}
}
