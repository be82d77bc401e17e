package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSource loads a catalog override from a JSON file on disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads the catalog file. A missing file yields the built-in dataset;
// sections absent from the file keep their built-in values.
func (f *FileSource) Load() (*Catalog, error) {
	base := Default()
	if f.path == "" {
		return base, nil
	}
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", f.path, err)
	}
	var c Catalog
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", f.path, err)
	}
	if c.Suppliers == nil {
		c.Suppliers = base.Suppliers
	}
	if c.Inventory == nil {
		c.Inventory = base.Inventory
	}
	if c.Contracts == nil {
		c.Contracts = base.Contracts
	}
	if c.Compliance == nil {
		c.Compliance = base.Compliance
	}
	if c.Categories == nil {
		c.Categories = base.Categories
	}
	if c.Metrics == nil {
		c.Metrics = base.Metrics
	}
	if c.Research == nil {
		c.Research = base.Research
	}
	return &c, nil
}

// Write stores c at the source path, replacing any existing file atomically.
func (f *FileSource) Write(c *Catalog) error {
	if c == nil {
		return fmt.Errorf("invalid catalog")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
