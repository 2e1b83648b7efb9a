package registryparser

import (
	"strings"
	"testing"

	"github.com/giygas/drugregistry/registryparser/entities"
)

func TestExtractSize(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expected    string
	}{
		{"tablets", "28 tabl. 10mg", "28 tabl."},
		{"tablets without dot", "30 TABL powlekanych", "30 tabl."},
		{"capsules", "30 kaps. twarde", "30 kaps."},
		{"ampoules before volume", "5 amp. 2 ml", "5 amp."},
		{"vials", "10 fiol. proszku", "10 fiol."},
		{"sachets", "20 sasz. granulatu", "20 sasz."},
		{"compound", "2 x 100 ml", "2 x 100 ml"},
		{"compound with multiplication sign", "3×1,5 g", "3 x 1,5 g"},
		{"volume", "1 butelka 100 ml", "100 ml"},
		{"mass", "1 tuba 30 g", "30 g"},
		{"dose", "1 inhalator 200 dawek", "200 dawek"},
		{"pieces", "10 szt.", "10 szt."},
		{"plasters", "5 plastrów", "5 plast."},
		{"suppositories", "10 czopków", "10 czop."},
		{"tablets win over later matches", "28 tabl. w blistrze 2 x 14 szt.", "28 tabl."},
		{"bare number fallback", "opakowanie 3", "3"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSize(tt.description); got != tt.expected {
				t.Errorf("ExtractSize(%q) = %q, want %q", tt.description, got, tt.expected)
			}
		})
	}
}

func TestExtractSizeTruncatesFreeText(t *testing.T) {
	description := strings.Repeat("ą", 60)

	got := ExtractSize(description)
	if got != strings.Repeat("ą", sizeFallbackLength) {
		t.Errorf("Expected %d-rune fallback, got %q", sizeFallbackLength, got)
	}

	if got := ExtractSize("pojemnik"); got != "pojemnik" {
		t.Errorf("Expected short text kept verbatim, got %q", got)
	}
}

func TestSizeRulesOrder(t *testing.T) {
	expected := []string{
		"tablets", "capsules", "ampoules", "vials", "sachets", "compound",
		"volume", "mass", "dose", "pieces", "plasters", "suppositories",
	}

	if len(sizeRules) != len(expected) {
		t.Fatalf("Expected %d size rules, got %d", len(expected), len(sizeRules))
	}
	for i, name := range expected {
		if sizeRules[i].name != name {
			t.Errorf("Rule %d: expected %s, got %s", i, name, sizeRules[i].name)
		}
	}
}

func TestResolveRefundation(t *testing.T) {
	tests := []struct {
		name           string
		code           string
		description    string
		status         entities.RefundationStatus
		percentage     float64
		price          float64
		limit          float64
		patientPayment float64
	}{
		{"explicit 100 percent", "Rp", "100% refundacji", entities.RefundationRefunded, 100, 0, 0, 0},
		{"free keyword", "Rp", "lek bezpłatny", entities.RefundationRefunded, 100, 0, 0, 0},
		{"percentage", "Rp", "refundacja 50%", entities.RefundationPartial, 50, 0, 0, 0},
		{"decimal comma percentage", "Rp", "refundacja 30,5 %", entities.RefundationPartial, 30.5, 0, 0, 0},
		{"percentage wins over currency", "Rp", "30% 12,50 zł", entities.RefundationPartial, 30, 0, 0, 0},
		{"currency with limit", "Rp", "cena 25,99 zł limit 20,00 zł", entities.RefundationPartial, 0, 25.99, 20, 0},
		{"currency in PLN", "Rp", "12.40 PLN", entities.RefundationPartial, 0, 12.4, 0, 0},
		{"flat co-payment", "Rp", "opłata ryczałtowa", entities.RefundationPartial, 0, 0, 0, flatCoPayment},
		{"prescription signal", "Rpw", "opakowanie", entities.RefundationPartial, 0, 0, 0, 0},
		{"default", "OTC", "", entities.RefundationNone, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resolveRefundation(tt.code, tt.description, ParsePrescriptionType(tt.code))

			if r.status != tt.status {
				t.Errorf("Expected status %s, got %s", tt.status, r.status)
			}
			assertOptionalFloat(t, "percentage", r.percentage, tt.percentage)
			assertOptionalFloat(t, "price", r.price, tt.price)
			assertOptionalFloat(t, "refundation price", r.refundationPrice, tt.limit)
			assertOptionalFloat(t, "patient payment", r.patientPayment, tt.patientPayment)
		})
	}
}

// assertOptionalFloat treats a zero expectation as "field must be absent".
func assertOptionalFloat(t *testing.T, field string, got *float64, want float64) {
	t.Helper()
	if want == 0 {
		if got != nil {
			t.Errorf("Expected %s to be absent, got %v", field, *got)
		}
		return
	}
	if got == nil {
		t.Errorf("Expected %s %v, got nil", field, want)
		return
	}
	if *got != want {
		t.Errorf("Expected %s %v, got %v", field, want, *got)
	}
}

func TestParsePrescriptionType(t *testing.T) {
	tests := []struct {
		raw      string
		expected entities.PrescriptionType
	}{
		{"Rp", entities.PrescriptionRp},
		{" rpz ", entities.PrescriptionRpz},
		{"RPW", entities.PrescriptionRpw},
		{"otc", entities.PrescriptionOTC},
		{"Lz", entities.PrescriptionLz},
		{"XYZ", entities.PrescriptionType("XYZ")},
	}

	for _, tt := range tests {
		if got := ParsePrescriptionType(tt.raw); got != tt.expected {
			t.Errorf("ParsePrescriptionType(%q) = %q, want %q", tt.raw, got, tt.expected)
		}
	}
}

func TestParsePackages(t *testing.T) {
	blob := strings.Join([]string{
		"E0001¦Rp¦REG1¦28 tabl. 10mg",
		"broken record",
		"",
		"E0002¦OTC",
		"E0003 ¦ Rpw ¦ REG3 ¦ 1 butelka ¦ 100 ml",
	}, PackageRecordSeparator)

	packages := ParsePackages(blob)
	if len(packages) != 3 {
		t.Fatalf("Expected 3 packages, got %d: %+v", len(packages), packages)
	}

	first := packages[0]
	if first.EAN != "E0001" || first.PrescriptionType != entities.PrescriptionRp || first.RegistrationNumber != "REG1" {
		t.Errorf("Unexpected first package: %+v", first)
	}
	if first.Size != "28 tabl." {
		t.Errorf("Expected size 28 tabl., got %q", first.Size)
	}
	if first.RefundationStatus != entities.RefundationNone {
		t.Errorf("Expected refundation none, got %s", first.RefundationStatus)
	}

	second := packages[1]
	if second.Description != "" || second.Size != "" || second.RegistrationNumber != "" {
		t.Errorf("Expected a two-field package to leave the rest empty, got %+v", second)
	}

	third := packages[2]
	if third.Description != "1 butelka 100 ml" {
		t.Errorf("Expected trailing sub-fields joined, got %q", third.Description)
	}
	if third.Size != "100 ml" {
		t.Errorf("Expected size 100 ml, got %q", third.Size)
	}
	if third.RefundationStatus != entities.RefundationPartial {
		t.Errorf("Expected Rpw package to be partially refunded, got %s", third.RefundationStatus)
	}
}

func TestParsePackagesEmpty(t *testing.T) {
	if packages := ParsePackages(""); len(packages) != 0 {
		t.Errorf("Expected no packages, got %d", len(packages))
	}
	if packages := ParsePackages("E0001"); len(packages) != 0 {
		t.Errorf("Expected single-field record to be skipped, got %d", len(packages))
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"12,50", 12.5, true},
		{"12.50", 12.5, true},
		{" 7 ", 7, true},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseDecimal(tt.input)
		if ok != tt.ok || got != tt.expected {
			t.Errorf("parseDecimal(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}
