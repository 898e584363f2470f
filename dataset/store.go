package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-scrape-vessels/models"
)

// Store maps categories to their dataset files under one directory, using
// the compiled<Category>Data.csv naming the original archive used.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created lazily
// on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the dataset file path for a category.
func (s *Store) Path(cat models.Category) string {
	name := string(cat)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return filepath.Join(s.dir, fmt.Sprintf("compiled%sData.csv", name))
}

// Load reads the category's dataset; a missing file is an empty dataset.
func (s *Store) Load(cat models.Category) (*Dataset, error) {
	return Load(s.Path(cat))
}

// Save persists the category's dataset atomically.
func (s *Store) Save(cat models.Category, d *Dataset) error {
	return d.Save(s.Path(cat))
}

// KnownIDs returns the authoritative id list from the summary dataset, in
// ascending order. A missing summary file yields an empty list so a fresh
// run degrades to "nothing known yet" instead of failing.
func (s *Store) KnownIDs() ([]int64, error) {
	summary, err := s.Load(models.CategorySummary)
	if err != nil {
		return nil, fmt.Errorf("load summary dataset: %w", err)
	}
	return summary.IDs(), nil
}
