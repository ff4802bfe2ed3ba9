package handlers

import (
	"testing"

	"github.com/dealerscore/backend/internal/importer"
)

func TestParseOverrides(t *testing.T) {
	raw := `[{"name":"All Repair Orders","user_id":"U1"},{"name":"Jon Smith","skip":true}]`
	out, err := parseOverrides(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 overrides, got %d", len(out))
	}
	o, ok := out[importer.NormalizeName("All Repair Orders")]
	if !ok || o.UserID != "U1" || o.Skip {
		t.Fatalf("bad override: %+v", o)
	}
	o, ok = out[importer.NormalizeName("Jon Smith")]
	if !ok || !o.Skip {
		t.Fatalf("bad skip override: %+v", o)
	}
}

func TestParseOverridesEmpty(t *testing.T) {
	out, err := parseOverrides("  ")
	if err != nil || out != nil {
		t.Fatalf("expected nil for empty payload, got %v, %v", out, err)
	}
}

func TestParseOverridesRejectsIncomplete(t *testing.T) {
	if _, err := parseOverrides(`[{"user_id":"U1"}]`); err == nil {
		t.Fatalf("expected error for missing name")
	}
	if _, err := parseOverrides(`[{"name":"x"}]`); err == nil {
		t.Fatalf("expected error for override without user_id or skip")
	}
	if _, err := parseOverrides(`{not json`); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestValidateExt(t *testing.T) {
	for _, name := range []string{"report.xlsx", "report.XLS", "report.xlsm"} {
		if !validateExt(name) {
			t.Fatalf("expected %s accepted", name)
		}
	}
	for _, name := range []string{"report.csv", "report", "report.pdf"} {
		if validateExt(name) {
			t.Fatalf("expected %s rejected", name)
		}
	}
}
