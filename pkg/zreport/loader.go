package zreport

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// LoadOptions controls how a report file is read.
type LoadOptions struct {
	// ShowAll includes reports already flagged with import_hide.
	ShowAll bool
	// Remapper is applied to legacy reports. Nil leaves accounts untouched.
	Remapper AccountRemapper
}

type reportFile struct {
	List []Entry `json:"list"`
}

// Load reads a report JSON file and groups its reports by sheet.
func Load(path string, opts LoadOptions) ([]*ZGroup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reports: %w", err)
	}
	defer f.Close()

	return Parse(f, opts)
}

// Parse is Load for an already opened report document.
func Parse(r io.Reader, opts LoadOptions) ([]*ZGroup, error) {
	var doc reportFile
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}

	groups := make(map[string]*ZGroup)
	var order []*ZGroup

	for i, e := range doc.List {
		if e.Hidden() && !opts.ShowAll {
			continue
		}

		z, err := NewZ(e, i, opts.Remapper)
		if err != nil {
			return nil, err
		}

		g, ok := groups[z.SheetID]
		if !ok {
			g = &ZGroup{ID: z.SheetID}
			groups[z.SheetID] = g
			order = append(order, g)
		}
		g.add(z)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].sortKey() < order[j].sortKey()
	})
	for i, g := range order {
		g.Index = i
	}

	slog.Debug("loaded z-reports", "entries", len(doc.List), "groups", len(order))
	return order, nil
}

// Hide flags the given reports as imported by setting import_hide to the
// unix time now on their entries. The whole file is rewritten; fields this
// package does not know about are kept.
func Hide(path string, zs []*Z, now time.Time) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read reports: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode reports: %w", err)
	}

	var list []map[string]json.RawMessage
	if err := json.Unmarshal(doc["list"], &list); err != nil {
		return fmt.Errorf("failed to decode report list: %w", err)
	}

	stamp, err := json.Marshal(float64(now.UnixNano()) / 1e9)
	if err != nil {
		return err
	}

	for _, z := range zs {
		if z.JSONIndex < 0 || z.JSONIndex >= len(list) {
			return fmt.Errorf("%s: index %d outside report list", z.ZNr(), z.JSONIndex)
		}
		list[z.JSONIndex]["import_hide"] = stamp
	}

	if doc["list"], err = json.Marshal(list); err != nil {
		return fmt.Errorf("failed to encode report list: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".reports-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write reports: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace reports: %w", err)
	}

	slog.Info("hid z-reports", "count", len(zs), "path", path)
	return nil
}
