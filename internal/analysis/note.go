// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"analyzer/internal/config"
	applog "analyzer/internal/log"
)

// NoNote is the note identifier published while nothing is detected.
const NoNote = "N/A"

// Note is one entry of the frequency table.
type Note struct {
	ID        string  `yaml:"id"`                // e.g. "A4"
	Frequency float64 `yaml:"frequency"`         // Hz, always positive
	Solfege   string  `yaml:"solfege,omitempty"` // e.g. "La"
}

// Table is an ordered note frequency table. The order is significant: the
// mapper breaks distance ties by keeping the first minimum, so a slice (not
// a map) guarantees reproducible results.
type Table struct {
	notes []Note
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
var solfegeNames = [12]string{"Do", "Do#", "Re", "Re#", "Mi", "Fa", "Fa#", "Sol", "Sol#", "La", "La#", "Si"}

// DefaultTable returns the built-in equal temperament table, C2 through B6
// with A4 = 440 Hz. It comfortably covers the 75-1200 Hz analysis band.
func DefaultTable() *Table {
	notes := make([]Note, 0, 60)
	for midi := 36; midi <= 95; midi++ { // C2..B6
		notes = append(notes, Note{
			ID:        fmt.Sprintf("%s%d", noteNames[midi%12], midi/12-1),
			Frequency: 440.0 * math.Pow(2, float64(midi-69)/12),
			Solfege:   solfegeNames[midi%12],
		})
	}
	return &Table{notes: notes}
}

// NewTable builds a table from explicit entries, skipping malformed ones
// (empty id or non-positive frequency). Returns nil if nothing valid remains.
func NewTable(entries []Note) *Table {
	notes := make([]Note, 0, len(entries))
	for _, n := range entries {
		if n.ID == "" || n.Frequency <= 0 || math.IsNaN(n.Frequency) {
			applog.Warnf("Notes: Skipping malformed table entry %+v", n)
			continue
		}
		notes = append(notes, n)
	}
	if len(notes) == 0 {
		return nil
	}
	return &Table{notes: notes}
}

// noteFile is the YAML schema of an external note table.
type noteFile struct {
	Notes []Note `yaml:"notes"`
}

// LoadTable reads a note table from a YAML file. Any failure (missing file,
// parse error, no valid entries) falls back to the built-in default table;
// a broken table file must never stop the analyzer.
func LoadTable(path string) *Table {
	if path == "" {
		return DefaultTable()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		applog.Warnf("Notes: Cannot read table %q, using built-in table: %v", path, err)
		return DefaultTable()
	}

	var file noteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		applog.Warnf("Notes: Cannot parse table %q, using built-in table: %v", path, err)
		return DefaultTable()
	}

	table := NewTable(file.Notes)
	if table == nil {
		applog.Warnf("Notes: Table %q has no valid entries, using built-in table", path)
		return DefaultTable()
	}
	applog.Infof("Notes: Loaded %d notes from %q", len(table.notes), path)
	return table
}

// Len returns the number of notes in the table.
func (t *Table) Len() int {
	return len(t.notes)
}

// Mapping is the result of mapping a frequency onto the table.
type Mapping struct {
	Note       Note
	Confidence float64 // percent [0,100]
	Matched    bool
}

// Mapper finds the nearest table note for an estimated frequency and scores
// the match by relative distance.
type Mapper struct {
	table     *Table
	sharpness float64
}

// NewMapper creates a mapper over table. sharpness is the confidence falloff
// constant K: confidence = 100 - |f0-closest|/closest * 100 * K, so larger
// values punish deviation harder. Useful values sit around 10-17.
func NewMapper(table *Table, sharpness float64) *Mapper {
	if table == nil || table.Len() == 0 {
		table = DefaultTable()
	}
	if sharpness <= 0 {
		sharpness = config.DefaultNoteSharpness
	}
	return &Mapper{table: table, sharpness: sharpness}
}

// Map returns the closest note for f0. Non-positive frequencies map to no
// note with confidence 0 without scanning the table. Distance ties keep the
// first minimum in table order.
func (m *Mapper) Map(f0 float64) Mapping {
	if f0 <= 0 || math.IsNaN(f0) {
		return Mapping{Note: Note{ID: NoNote}}
	}

	best := 0
	bestDist := math.Abs(m.table.notes[0].Frequency - f0)
	for i := 1; i < len(m.table.notes); i++ {
		dist := math.Abs(m.table.notes[i].Frequency - f0)
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}

	closest := m.table.notes[best]
	confidence := 100 - (bestDist/closest.Frequency)*100*m.sharpness
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	return Mapping{Note: closest, Confidence: confidence, Matched: true}
}
