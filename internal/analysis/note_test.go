// SPDX-License-Identifier: MIT
package analysis

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTableCoversBand(t *testing.T) {
	table := DefaultTable()
	if table.Len() != 60 {
		t.Fatalf("expected 60 notes (C2..B6), got %d", table.Len())
	}

	first := table.notes[0]
	last := table.notes[len(table.notes)-1]
	if first.ID != "C2" || last.ID != "B6" {
		t.Errorf("expected range C2..B6, got %s..%s", first.ID, last.ID)
	}
	// The table must enclose the 75-1200 Hz analysis band.
	if first.Frequency > 75 || last.Frequency < 1200 {
		t.Errorf("table [%.1f, %.1f] does not cover the analysis band", first.Frequency, last.Frequency)
	}
}

func TestMapperExactMatch(t *testing.T) {
	m := NewMapper(DefaultTable(), 12)

	mapping := m.Map(440.0)
	if !mapping.Matched || mapping.Note.ID != "A4" {
		t.Fatalf("expected A4, got %+v", mapping)
	}
	if mapping.Confidence != 100 {
		t.Errorf("expected confidence 100 at exact match, got %.2f", mapping.Confidence)
	}
	if mapping.Note.Solfege != "La" {
		t.Errorf("expected solfege La, got %q", mapping.Note.Solfege)
	}
}

func TestMapperNearestNeighbor(t *testing.T) {
	m := NewMapper(DefaultTable(), 12)

	// 466 Hz sits next to A#4 (466.16 Hz).
	mapping := m.Map(466.0)
	if mapping.Note.ID != "A#4" {
		t.Errorf("expected A#4 for 466 Hz, got %s", mapping.Note.ID)
	}
	if mapping.Confidence >= 100 {
		t.Errorf("expected confidence < 100 off-pitch, got %.2f", mapping.Confidence)
	}
}

func TestMapperConfidenceMonotonicallyDecreases(t *testing.T) {
	m := NewMapper(DefaultTable(), 12)

	prev := 101.0
	for _, f0 := range []float64{440, 441, 443, 446, 450} {
		mapping := m.Map(f0)
		if mapping.Note.ID != "A4" {
			t.Fatalf("expected A4 for %.0f Hz, got %s", f0, mapping.Note.ID)
		}
		if mapping.Confidence >= prev {
			t.Errorf("confidence did not decrease at %.0f Hz: %.2f >= %.2f", f0, mapping.Confidence, prev)
		}
		prev = mapping.Confidence
	}
}

func TestMapperConfidenceClampsToZero(t *testing.T) {
	// Sharpness high enough that a quarter tone away bottoms out.
	m := NewMapper(DefaultTable(), 1000)
	mapping := m.Map(452)
	if mapping.Confidence != 0 {
		t.Errorf("expected clamped confidence 0, got %.2f", mapping.Confidence)
	}
}

func TestMapperNoPitch(t *testing.T) {
	m := NewMapper(DefaultTable(), 12)

	for _, f0 := range []float64{0, -1} {
		mapping := m.Map(f0)
		if mapping.Matched {
			t.Errorf("expected no match for f0=%.0f", f0)
		}
		if mapping.Note.ID != NoNote || mapping.Confidence != 0 {
			t.Errorf("expected %s with confidence 0, got %+v", NoNote, mapping)
		}
	}
}

func TestMapperTieBreakIsFirstInTableOrder(t *testing.T) {
	table := NewTable([]Note{
		{ID: "low", Frequency: 100},
		{ID: "high", Frequency: 200},
	})
	m := NewMapper(table, 12)

	// 150 Hz is equidistant; the first minimum in table order wins.
	if got := m.Map(150).Note.ID; got != "low" {
		t.Errorf("expected tie-break to keep first entry, got %s", got)
	}
}

func TestNewTableSkipsMalformedEntries(t *testing.T) {
	table := NewTable([]Note{
		{ID: "", Frequency: 440},      // missing id
		{ID: "X1", Frequency: 0},      // zero frequency
		{ID: "X2", Frequency: -10},    // negative frequency
		{ID: "A4", Frequency: 440.0},  // valid
	})
	if table == nil || table.Len() != 1 {
		t.Fatalf("expected exactly 1 valid entry, got %+v", table)
	}
}

func TestNewTableAllMalformed(t *testing.T) {
	if table := NewTable([]Note{{ID: "", Frequency: 0}}); table != nil {
		t.Errorf("expected nil table when nothing is valid, got %+v", table)
	}
}

func TestLoadTableFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.yaml")
	content := `
notes:
  - id: A4
    frequency: 440.0
    solfege: La
  - id: ""
    frequency: 220.0
  - id: E4
    frequency: 329.63
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write note table: %v", err)
	}

	table := LoadTable(path)
	if table.Len() != 2 {
		t.Errorf("expected 2 valid entries (malformed skipped), got %d", table.Len())
	}
}

func TestLoadTableFallsBackToBuiltin(t *testing.T) {
	// Missing file.
	if table := LoadTable(filepath.Join(t.TempDir(), "missing.yaml")); table.Len() != 60 {
		t.Errorf("expected built-in table for missing file, got %d entries", table.Len())
	}

	// Corrupt file.
	path := filepath.Join(t.TempDir(), "notes.yaml")
	if err := os.WriteFile(path, []byte(":\n:bad"), 0644); err != nil {
		t.Fatalf("failed to write corrupt table: %v", err)
	}
	if table := LoadTable(path); table.Len() != 60 {
		t.Errorf("expected built-in table for corrupt file, got %d entries", table.Len())
	}

	// Empty path.
	if table := LoadTable(""); table.Len() != 60 {
		t.Errorf("expected built-in table for empty path, got %d entries", table.Len())
	}
}
