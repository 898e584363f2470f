// Package dataset persists per-category vessel tables as CSV files.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/aluiziolira/go-scrape-vessels/models"
)

// idColumn is always the first CSV column.
const idColumn = "VesselId"

// Dataset is an in-memory vessel table: rows sorted ascending by id, at
// most one row per id.
type Dataset struct {
	rows    []models.Record
	ids     map[int64]struct{}
	columns map[string]struct{}
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{
		ids:     make(map[int64]struct{}),
		columns: make(map[string]struct{}),
	}
}

// Len reports the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Has reports whether a row for id is present.
func (d *Dataset) Has(id int64) bool {
	_, ok := d.ids[id]
	return ok
}

// IDs returns all row ids in ascending order.
func (d *Dataset) IDs() []int64 {
	out := make([]int64, 0, len(d.rows))
	for _, row := range d.rows {
		out = append(out, row.VesselID)
	}
	return out
}

// Merge appends records whose id is not already present, then restores the
// sort order. It returns the number of rows added; merging the same result
// set twice is a no-op the second time.
func (d *Dataset) Merge(records []models.Record) int {
	added := 0
	for _, rec := range records {
		if _, ok := d.ids[rec.VesselID]; ok {
			continue
		}
		d.ids[rec.VesselID] = struct{}{}
		d.rows = append(d.rows, rec)
		for name := range rec.Fields {
			d.columns[name] = struct{}{}
		}
		added++
	}
	if added > 0 {
		sort.Slice(d.rows, func(i, j int) bool { return d.rows[i].VesselID < d.rows[j].VesselID })
	}
	return added
}

// header returns the CSV column order: id first, remaining columns sorted.
func (d *Dataset) header() []string {
	names := make([]string, 0, len(d.columns)+1)
	for name := range d.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{idColumn}, names...)
}

// Save writes the dataset to path using a temp-file-then-rename discipline
// so a crash mid-write leaves either the old or the new file intact.
func (d *Dataset) Save(path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp dataset file: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	header := d.header()
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range d.rows {
		record := make([]string, len(header))
		record[0] = strconv.FormatInt(row.VesselID, 10)
		for i, name := range header[1:] {
			record[i+1] = row.Fields[name]
		}
		if err := writer.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush csv records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp dataset file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace dataset file: %w", err)
	}
	return nil
}

// Load reads a dataset from path. A missing file is an empty dataset, not
// an error; an unreadable or malformed file is.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset file %s: %w", path, err)
	}
	if len(rows) == 0 {
		return New(), nil
	}

	header := rows[0]
	idIdx := -1
	for i, name := range header {
		if name == idColumn {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("dataset file %s has no %s column", path, idColumn)
	}

	d := New()
	records := make([]models.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		id, err := strconv.ParseInt(row[idIdx], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("dataset file %s has bad %s value %q: %w", path, idColumn, row[idIdx], err)
		}
		fields := make(map[string]string, len(header)-1)
		for i, value := range row {
			if i == idIdx {
				continue
			}
			fields[header[i]] = value
		}
		records = append(records, models.Record{VesselID: id, Fields: fields})
	}
	d.Merge(records)
	return d, nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
