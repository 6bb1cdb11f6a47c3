// Package storage is the in-memory storage collaborator the
// transaction executor and the projection rewriter consult for block
// addresses and table schemas (spec.md §6). It is adapted from the
// teacher's catalog.CatalogManager shapes (TableSchema, ColumnDef),
// backed by a plain map instead of the teacher's on-disk B+tree
// catalog, since the on-disk catalog is out of spec.md's core scope.
package storage

import (
	"fmt"
	"sync"

	"github.com/Johniel/gorellycore/lockmgr"
)

// ErrUnknownTable is returned by Addresses and Schema when the table
// is not registered (spec.md §6: "unknown table").
var ErrUnknownTable = fmt.Errorf("storage: unknown table")

// ColumnDef describes one column of a registered table, following the
// teacher's catalog.ColumnDef shape.
type ColumnDef struct {
	Name         string
	IsPrimaryKey bool
}

// TableInfo is the in-memory analogue of the teacher's
// catalog.TableSchema: enough to answer addresses(table) and
// schema(table).
type TableInfo struct {
	Name    string
	Columns []ColumnDef
	Blocks  []lockmgr.BlockID
}

// Catalog is a small in-memory registry of tables, standing in for
// the out-of-scope on-disk catalog.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*TableInfo
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*TableInfo)}
}

// Register adds or replaces a table's definition.
func (c *Catalog) Register(info TableInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := info
	cp.Blocks = append([]lockmgr.BlockID(nil), info.Blocks...)
	cp.Columns = append([]ColumnDef(nil), info.Columns...)
	c.tables[info.Name] = &cp
}

// Addresses returns the ordered list of block identifiers backing
// table (spec.md §6's addresses(table_name)). An unknown table yields
// ErrUnknownTable.
func (c *Catalog) Addresses(table string) ([]lockmgr.BlockID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[table]
	if !ok {
		return nil, ErrUnknownTable
	}
	return append([]lockmgr.BlockID(nil), t.Blocks...), nil
}

// Schema returns the ordered list of attribute names for table
// (spec.md §6's schema(table_name)). An unknown table yields an empty
// slice and ErrUnknownTable, matching the rewriter's schema-missing
// contract (spec.md §4.6, §7).
func (c *Catalog) Schema(table string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[table]
	if !ok {
		return nil, ErrUnknownTable
	}
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names, nil
}
