package geography

import (
	"testing"

	"googlemaps.github.io/maps"
)

func TestCanonicalCounty(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Exact", "Cluj", "Cluj"},
		{"Upper case", "CLUJ", "Cluj"},
		{"Bucharest alias", "BUCURESTI", "Bucharest"},
		{"Hyphen variant", "CARAS SEVERIN", "Caras-Severin"},
		{"Satu Mare dash", "SATU-MARE", "Satu Mare"},
		{"Diacritics", "Argeș", "Arges"},
		{"Cedilla diacritics", "TIMIŞ", "Timis"},
		{"Judetul prefix", "Județul Iași", "Iasi"},
		{"Whitespace", "  Olt  ", "Olt"},
		{"Unmapped keeps trimmed", "  Diaspora ", "Diaspora"},
		{"Empty", "", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalCounty(tt.input); got != tt.expected {
				t.Errorf("CanonicalCounty(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCountiesIncludesBucharest(t *testing.T) {
	list := Counties()
	if len(list) != 42 {
		t.Fatalf("len(Counties()) = %d, want 42", len(list))
	}
	list[0] = "mutated"
	if Counties()[0] != "Alba" {
		t.Error("Counties() must return a copy")
	}
	if !IsKnownCounty("bucurești") {
		t.Error("expected bucurești to be known")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Cluj-Napoca", "cluj-napoca"},
		{"Satu Mare", "satu_mare"},
		{"  Piatra Neamț  ", "piatra_neamt"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.expected {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCountyFromComponents(t *testing.T) {
	tests := []struct {
		name       string
		components []maps.AddressComponent
		expected   string
	}{
		{
			name: "County level present",
			components: []maps.AddressComponent{
				{LongName: "Cluj-Napoca", Types: []string{"locality", "political"}},
				{LongName: "Județul Cluj", Types: []string{"administrative_area_level_1", "political"}},
				{LongName: "Romania", ShortName: "RO", Types: []string{"country", "political"}},
			},
			expected: "Cluj",
		},
		{
			name: "Bucharest",
			components: []maps.AddressComponent{
				{LongName: "București", Types: []string{"administrative_area_level_1"}},
			},
			expected: "Bucharest",
		},
		{
			name: "No county",
			components: []maps.AddressComponent{
				{LongName: "Romania", Types: []string{"country"}},
			},
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountyFromComponents(tt.components); got != tt.expected {
				t.Errorf("CountyFromComponents() = %q, want %q", got, tt.expected)
			}
		})
	}
}
