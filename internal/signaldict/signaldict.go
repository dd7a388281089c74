// Package signaldict loads and serves the bidirectional signal name/id
// dictionary. A Dictionary is immutable after Load: the scheduler and
// expression evaluator only ever read it.
package signaldict

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/collabora/vsm/internal/vsmvalue"
)

// UnknownID is returned for a signal name with no dictionary entry. Unknown
// names are allowed: the id resolves to this fallback.
const UnknownID = 0

// entry is one signal-number-file row: name, id and recorded default.
type entry struct {
	id      uint32
	dflt    vsmvalue.Value
}

// Dictionary is the immutable name <-> id mapping with recorded defaults.
type Dictionary struct {
	byName map[string]entry
	byID   map[uint32]string
}

// New returns an empty Dictionary, useful for tests and for rule documents
// that reference signals not present in any signal-number file.
func New() *Dictionary {
	return &Dictionary{byName: make(map[string]entry), byID: make(map[uint32]string)}
}

// Load reads a CSV signal-number file ("name,id,default" per line) from
// path and returns the resulting Dictionary.
func Load(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("signaldict: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads CSV signal-number rows from r.
func Parse(r io.Reader) (*Dictionary, error) {
	d := New()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, ",", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("signaldict: line %d: expected name,id,default, got %q", lineNo, line)
		}
		name := strings.TrimSpace(fields[0])
		idStr := strings.TrimSpace(fields[1])
		defaultLit := strings.TrimSpace(fields[2])

		id64, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("signaldict: line %d: invalid id %q: %w", lineNo, idStr, err)
		}
		id := uint32(id64)
		dflt, _ := vsmvalue.ParseLexeme(defaultLit)

		if err := d.add(name, id, dflt); err != nil {
			return nil, fmt.Errorf("signaldict: line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("signaldict: scan: %w", err)
	}
	return d, nil
}

func (d *Dictionary) add(name string, id uint32, dflt vsmvalue.Value) error {
	if name == "" {
		return fmt.Errorf("empty signal name")
	}
	if existingID, ok := d.byID[id]; ok && existingID != name {
		return fmt.Errorf("id %d already assigned to %q", id, existingID)
	}
	d.byName[name] = entry{id: id, dflt: dflt}
	d.byID[id] = name
	return nil
}

// ID returns the numeric id for name, or UnknownID if name is not present.
func (d *Dictionary) ID(name string) uint32 {
	if e, ok := d.byName[name]; ok {
		return e.id
	}
	return UnknownID
}

// Name returns the signal name for id, or "" if id is not present.
func (d *Dictionary) Name(id uint32) string {
	return d.byID[id]
}

// Default returns the recorded default value for name, or vsmvalue.Unset
// if name is not present or has no recorded default.
func (d *Dictionary) Default(name string) vsmvalue.Value {
	if e, ok := d.byName[name]; ok {
		return e.dflt
	}
	return vsmvalue.Unset
}

// Has reports whether name has a dictionary entry.
func (d *Dictionary) Has(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// Len returns the number of entries in the dictionary.
func (d *Dictionary) Len() int { return len(d.byName) }
