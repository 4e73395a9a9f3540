package currency

import (
	"math"
	"testing"
)

func TestParsePriceText(t *testing.T) {
	n := NewNormalizer("ZAR")
	cases := []struct {
		in   string
		want float64
	}{
		{in: "1234.56", want: 1234.56},
		{in: "R 1234.50", want: 1234.5},
		{in: "R1,234.50", want: 1234.5},
		{in: "1 234,56", want: 1234.56},
		{in: "1.234,56", want: 1234.56},
		{in: "1,234", want: 1234},
		{in: "12,50", want: 12.5},
		{in: "1.234.567", want: 1234567},
		{in: "1'234.50", want: 1234.5},
		{in: "USD 99.99", want: 99.99},
		{in: "€45,00", want: 45},
		{in: "(99.99)", want: -99.99},
		{in: "-15", want: -15},
		{in: "USD100", want: 100},
		{in: "100USD", want: 100},
		{in: "EUR12,50", want: 12.5},
		{in: "1.4999999999999999E-2", want: 0.015},
		{in: "2.5E-3", want: 0.0025},
		{in: "1E+3", want: 1000},
		{in: "1.5e2", want: 150},
		{in: "(2.5E-3)", want: -0.0025},
	}
	for _, tc := range cases {
		got := n.ParsePrice(tc.in)
		if got == nil {
			t.Fatalf("ParsePrice(%q)=nil want %v", tc.in, tc.want)
		}
		if math.Abs(*got-tc.want) > 1e-9 {
			t.Fatalf("ParsePrice(%q)=%v want %v", tc.in, *got, tc.want)
		}
	}
}

func TestParsePriceRejects(t *testing.T) {
	n := NewNormalizer("ZAR")
	for _, in := range []any{"", "-", "n/a", "POA", "0", "0.00", nil, 0.0, -5.0, struct{}{}} {
		if got := n.ParsePrice(in); got != nil {
			t.Fatalf("ParsePrice(%v)=%v want nil", in, *got)
		}
	}
}

func TestParsePriceNumeric(t *testing.T) {
	n := NewNormalizer("ZAR")
	if got := n.ParsePrice(42.5); got == nil || *got != 42.5 {
		t.Fatalf("float: %v", got)
	}
	if got := n.ParsePrice(7); got == nil || *got != 7 {
		t.Fatalf("int: %v", got)
	}
}

func TestDetectCurrency(t *testing.T) {
	n := NewNormalizer("ZAR")
	cases := []struct {
		in       string
		hint     string
		currency string
		conf     float64
	}{
		{in: "R 100.00", currency: "ZAR", conf: 0.95},
		{in: "$12.00", currency: "USD", conf: 0.95},
		{in: "US$12.00", currency: "USD", conf: 0.95},
		{in: "A$12.00", currency: "AUD", conf: 0.95},
		{in: "€12,00", currency: "EUR", conf: 0.95},
		{in: "£5", currency: "GBP", conf: 0.95},
		{in: "99.99 EUR", currency: "EUR", conf: 0.9},
		{in: "zar 99.99", currency: "ZAR", conf: 0.9},
		{in: "USD100", currency: "USD", conf: 0.9},
		{in: "100USD", currency: "USD", conf: 0.9},
		{in: "EUR12,50", currency: "EUR", conf: 0.9},
		{in: "1,234.56 GBP", currency: "GBP", conf: 0.9},
		{in: "BUSDRIVER 10", currency: "ZAR", conf: 0.5},
		{in: "99.99", currency: "ZAR", conf: 0.5},
		{in: "99.99", hint: "gbp", currency: "GBP", conf: 0.5},
		{in: "99.99", hint: "XXX", currency: "ZAR", conf: 0.5},
	}
	for _, tc := range cases {
		got := n.DetectCurrency(tc.in, tc.hint)
		if got.Currency != tc.currency || got.Confidence != tc.conf {
			t.Fatalf("DetectCurrency(%q,%q)=%+v want %s/%v", tc.in, tc.hint, got, tc.currency, tc.conf)
		}
	}
}

func TestDefaultCurrencyFallback(t *testing.T) {
	if got := NewNormalizer("").DefaultCurrency(); got != "ZAR" {
		t.Fatalf("default=%s", got)
	}
	if got := NewNormalizer("usd").DetectCurrency("10", "").Currency; got != "USD" {
		t.Fatalf("currency=%s", got)
	}
}
