package schema

import (
	"errors"
	"testing"
)

// TestResolve_TrimsHeaderCells verifies that surrounding white space in the
// header does not affect lookups.
func TestResolve_TrimsHeaderCells(t *testing.T) {
	t.Parallel()

	m := Resolve([]string{"Site_Number", " Leakage_Current "})

	i, ok := m.Index("Leakage_Current")
	if !ok || i != 1 {
		t.Fatalf("Index(Leakage_Current) = %d, %v; want 1, true", i, ok)
	}
	if i, ok := m.Index("  Site_Number\t"); !ok || i != 0 {
		t.Fatalf("Index with padded query = %d, %v; want 0, true", i, ok)
	}
	if got := m.Header(); got[1] != "Leakage_Current" {
		t.Fatalf("Header()[1] = %q", got[1])
	}
}

func TestResolve_Normalization(t *testing.T) {
	t.Parallel()

	// "é" as e + combining acute in the header, precomposed in the query.
	m := Resolve([]string{"\uFEFFWAF ID 2", "Re\u0301sistance"})

	if i, ok := m.Index("WAF ID 2"); !ok || i != 0 {
		t.Fatalf("BOM not stripped: %d, %v", i, ok)
	}
	if i, ok := m.Index("R\u00e9sistance"); !ok || i != 1 {
		t.Fatalf("NFC lookup = %d, %v; want 1, true", i, ok)
	}
}

func TestResolve_DuplicatesAndBlanks(t *testing.T) {
	t.Parallel()

	m := Resolve([]string{"a", "", "a", "  "})

	if i, _ := m.Index("a"); i != 2 {
		t.Fatalf("duplicate name resolved to %d, want rightmost 2", i)
	}
	if _, ok := m.Index(""); ok {
		t.Fatalf("blank name must not resolve")
	}
	if m.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", m.Len())
	}
}

func TestRequire(t *testing.T) {
	t.Parallel()

	m := Resolve([]string{"X_Coordinate", "Y_Coordinate", "Voltage_Result"})

	if err := m.Require("X_Coordinate", "", "Voltage_Result"); err != nil {
		t.Fatalf("Require(present) = %v", err)
	}

	err := m.Require("X_Coordinate", "Die_Bin", "Lot")
	if err == nil {
		t.Fatalf("Require(absent) = nil")
	}
	var mc *MissingColumnError
	if !errors.As(err, &mc) || mc.Name != "Die_Bin" {
		t.Fatalf("errors.As = %v, first missing %v", err, mc)
	}
	got := Missing(err)
	if len(got) != 2 || got[0] != "Die_Bin" || got[1] != "Lot" {
		t.Fatalf("Missing(err) = %v, want [Die_Bin Lot]", got)
	}
}

func TestMustIndex(t *testing.T) {
	t.Parallel()

	m := Resolve([]string{"a"})
	if _, err := m.MustIndex(" b "); err == nil || err.Error() != `missing column "b"` {
		t.Fatalf("MustIndex(b) err = %v", err)
	}
}

func TestProfile(t *testing.T) {
	t.Parallel()

	m := Resolve([]string{"site", "wafer", "v", "note", "blank"})
	rows := [][]string{
		{"1", "W01", "3.3", "ok", ""},
		{"2", "W01", "n/a", "", ""},
		{"3", "W02", "3.1"},
	}

	cols := Profile(m, rows, 0)
	want := []Kind{KindNumeric, KindText, KindMixed, KindText, KindEmpty}
	for i, k := range want {
		if cols[i].Kind != k {
			t.Fatalf("column %q kind = %s, want %s", cols[i].Name, cols[i].Kind, k)
		}
	}
	if cols[2].Filled != 3 || cols[2].Numeric != 2 {
		t.Fatalf("v counts = %d/%d, want 3/2", cols[2].Numeric, cols[2].Filled)
	}

	if one := Profile(m, rows, 1); one[2].Kind != KindNumeric {
		t.Fatalf("limit=1 should only see the first row, got %s", one[2].Kind)
	}
}
