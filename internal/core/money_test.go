package core

import (
	"encoding/json"
	"testing"
)

func TestAmountCoercion(t *testing.T) {
	cases := []struct {
		in  string
		out float64
	}{
		{"1500", 1500},
		{" 2.50 ", 2.5},
		{"0", 0},
		{"", 0},
		{"abc", 0},
		{"-20", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"1e3", 1000},
	}
	for _, tc := range cases {
		if got := nonNegative(Number(tc.in).Float()); got != tc.out {
			t.Fatalf("%q expected %v, got %v", tc.in, tc.out, got)
		}
	}
}

func TestNumberUnmarshalJSON(t *testing.T) {
	var form struct {
		A *Number `json:"a"`
		B *Number `json:"b"`
		C *Number `json:"c"`
		D *Number `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a": 12.5, "b": "300", "c": "x", "d": null}`), &form); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if form.A == nil || form.A.Float() != 12.5 {
		t.Fatalf("a: got %v", form.A)
	}
	if form.B == nil || form.B.Float() != 300 {
		t.Fatalf("b: got %v", form.B)
	}
	if form.C == nil || form.C.Float() != 0 {
		t.Fatalf("c: got %v", form.C)
	}
	if form.D != nil {
		t.Fatalf("d: expected nil for null, got %q", *form.D)
	}
}

func TestNumberOfRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, 1499.99, -250, 1e7} {
		if got := NumberOf(v).Float(); got != v {
			t.Fatalf("%v round-tripped to %v", v, got)
		}
	}
}

func TestFormatINR(t *testing.T) {
	cases := []struct {
		in  float64
		out string
	}{
		{0, "₹0"},
		{999, "₹999"},
		{1000, "₹1,000"},
		{12345, "₹12,345"},
		{123456, "₹1,23,456"},
		{1234567, "₹12,34,567"},
		{12345678.6, "₹1,23,45,679"},
		{-1500, "-₹1,500"},
	}
	for _, tc := range cases {
		if got := FormatINR(tc.in); got != tc.out {
			t.Fatalf("%v expected %q, got %q", tc.in, tc.out, got)
		}
	}
}
