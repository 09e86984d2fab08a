// Catalog: table schema persistence.
//
// The catalog is a single JSON file mapping table name to its file
// path, row-size hint, and column list (spec §6 "Catalog file"). It is
// consumed by RowCodec and IndexController and produced by DDL
// operations (StorageEngine.CreateTable / DropTable). Like the
// teacher's header writes, updates are written to a temp file and
// renamed into place so a crash mid-write never leaves a torn catalog.
package pagedb

import (
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
)

// Catalog owns the table-schema metadata file. Safe for concurrent use;
// callers needing cross-process exclusivity should additionally hold
// Catalog.lock (spec §5: "catalog JSON file is read/written under
// exclusive access (caller discipline)").
type Catalog struct {
	path string
	lock *fileLock

	mu      sync.RWMutex
	tables  map[string]*Schema
	lockFd  *os.File
}

// OpenCatalog loads the catalog file at path, creating an empty one if
// it does not exist.
func OpenCatalog(path string) (*Catalog, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	c := &Catalog{path: path, lockFd: f, lock: &fileLock{f: f}, tables: map[string]*Schema{}}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := c.save(); err != nil {
			f.Close()
			return nil, err
		}
		return c, nil
	}

	buf := make([]byte, info.Size())
	if _, err := f.ReadAt(buf, 0); err != nil {
		f.Close()
		return nil, err
	}

	var entries map[string]catalogEntry
	if err := json.Unmarshal(buf, &entries); err != nil {
		f.Close()
		return nil, err
	}
	for table, entry := range entries {
		schema, err := schemaFromEntry(table, entry)
		if err != nil {
			f.Close()
			return nil, err
		}
		c.tables[table] = schema
	}
	return c, nil
}

// Close releases the catalog file handle.
func (c *Catalog) Close() error {
	c.lock.setFile(nil)
	return c.lockFd.Close()
}

// Table returns the schema for name, or ErrTableNotFound.
func (c *Catalog) Table(name string) (*Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.tables[name]
	if !ok {
		return nil, ErrTableNotFound
	}
	return s, nil
}

// Tables returns every registered table name.
func (c *Catalog) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	return names
}

// CreateTable registers schema under name, replacing any existing
// entry (spec §4.5 "Duplicate create replaces the schema entry"). The
// table's data file is not created here; it materializes when the
// engine first opens the table (spec §3 "Lifecycle").
func (c *Catalog) CreateTable(name string, schema *Schema) error {
	if err := c.lock.Lock(LockExclusive); err != nil {
		return err
	}
	defer c.lock.Unlock()

	c.mu.Lock()
	schema.Table = name
	c.tables[name] = schema
	c.mu.Unlock()

	return c.save()
}

// DropTable removes name from the catalog. The underlying data and
// index files are left on disk — a soft delete (spec §3 "Lifecycle").
func (c *Catalog) DropTable(name string) error {
	if err := c.lock.Lock(LockExclusive); err != nil {
		return err
	}
	defer c.lock.Unlock()

	c.mu.Lock()
	if _, ok := c.tables[name]; !ok {
		c.mu.Unlock()
		return ErrTableNotFound
	}
	delete(c.tables, name)
	c.mu.Unlock()

	return c.save()
}

// save serializes the catalog to a temp file and renames it over the
// live path, matching the teacher's compaction write-swap discipline.
func (c *Catalog) save() error {
	c.mu.RLock()
	entries := make(map[string]catalogEntry, len(c.tables))
	for name, schema := range c.tables {
		entries[name] = entryFromSchema(schema)
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, c.path)
}

// dataFilePath builds a default data-file path for a table created
// without an explicit FilePath, mirroring the IndexController's
// "{dir}/{name}.ext" convention.
func dataFilePath(dir, table string) string {
	return filepath.Join(dir, table+".tbl")
}
