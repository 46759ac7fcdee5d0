package rdfgen

import "testing"

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"occurredIn", "OccurredIn"},
		{"victim_name", "VictimName"},
		{"birth-date", "BirthDate"},
		{"label", "Label"},
		{"display_id", "DisplayId"},
		{"a", "A"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ToPascalCase(tt.input)
			if got != tt.expected {
				t.Errorf("ToPascalCase(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToPascalCaseAcronyms(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"display_id", "DisplayID"},
		{"sourceUrl", "SourceURL"},
		{"homepageURI", "HomepageURI"},
		{"name", "Name"},
		{"rdf_label", "RDFLabel"},
		{"partOf", "PartOf"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ToPascalCaseAcronyms(tt.input)
			if got != tt.expected {
				t.Errorf("ToPascalCaseAcronyms(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTypeVarName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Event", "eventType"},
		{"Type", "typeType"},
		{"news_item", "newsItemType"},
	}
	for _, tt := range tests {
		if got := typeVarName(tt.input); got != tt.expected {
			t.Errorf("typeVarName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
