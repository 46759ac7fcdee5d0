package rdfgen

import (
	"strings"
	"unicode"
)

// splitName splits a name on hyphens, underscores, and lower-to-upper case
// boundaries: "occurredIn" and "occurred_in" both give [occurred In].
func splitName(name string) []string {
	var parts []string
	for _, chunk := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_'
	}) {
		runes := []rune(chunk)
		start := 0
		for i := 1; i < len(runes); i++ {
			if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) {
				parts = append(parts, string(runes[start:i]))
				start = i
			}
		}
		parts = append(parts, string(runes[start:]))
	}
	return parts
}

// ToPascalCase transforms a camelCase, kebab-case or snake_case name into
// PascalCase, keeping the case of letters after the first of each part.
func ToPascalCase(name string) string {
	var b strings.Builder
	for _, part := range splitName(name) {
		runes := []rune(part)
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(string(runes[1:]))
	}
	return b.String()
}

// CommonAcronyms defines a set of common abbreviations that should be fully
// uppercased when generating Go names.
var CommonAcronyms = map[string]string{
	"id":   "ID",
	"uri":  "URI",
	"url":  "URL",
	"iri":  "IRI",
	"uuid": "UUID",
	"api":  "API",
	"http": "HTTP",
	"rdf":  "RDF",
}

// ToPascalCaseAcronyms transforms a name into PascalCase while uppercasing
// common Go acronyms.
func ToPascalCaseAcronyms(name string) string {
	var b strings.Builder
	for _, part := range splitName(name) {
		if acronym, ok := CommonAcronyms[strings.ToLower(part)]; ok {
			b.WriteString(acronym)
			continue
		}
		runes := []rune(part)
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(string(runes[1:]))
	}
	return b.String()
}

// typeVarName is the local variable holding an entity type in generated code.
func typeVarName(entity string) string {
	runes := []rune(ToPascalCase(entity))
	if len(runes) == 0 {
		return "t"
	}
	runes[0] = unicode.ToLower(runes[0])
	return string(runes) + "Type"
}
