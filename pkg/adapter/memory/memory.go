// Package memory provides an in-process gateway whose relations are backed
// by slices of rows.
//
// It is used for tests, for small datasets declared inline in a config file
// and as the reference implementation of the adapter contract:
//
//	ds := memory.New()
//	ds.Insert("users", relation.Row{"name": "Jane"})
//	users := ds.Relation("users")
//	jane, _ := users.Refine("restrict", map[string]any{"name": "Jane"})
//
// Relations are immutable. Rows are read at Call time, so rows inserted after
// a relation was created are visible to it.
package memory

import (
	"maps"
	"sync"

	"github.com/matzehuels/relgraph/pkg/relation"
)

// Dataset is a set of named tables plus the methods and mappers defined on
// relations over them. It is safe for concurrent use.
type Dataset struct {
	*relation.Catalog[*Relation]

	mu     sync.RWMutex
	tables map[string][]relation.Row
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{
		Catalog: relation.NewCatalog(builtins),
		tables:  map[string][]relation.Row{},
	}
}

// Insert appends rows to table, creating it if needed. Rows are copied.
func (d *Dataset) Insert(table string, rows ...relation.Row) {
	d.mu.Lock()
	defer d.mu.Unlock()
	existing := d.tables[table]
	if existing == nil {
		existing = []relation.Row{}
	}
	for _, r := range rows {
		existing = append(existing, maps.Clone(r))
	}
	d.tables[table] = existing
}

// Tables returns the number of rows per table.
func (d *Dataset) Tables() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int, len(d.tables))
	for name, rows := range d.tables {
		out[name] = len(rows)
	}
	return out
}

// Relation returns a relation over the table of the same name.
func (d *Dataset) Relation(name string) *Relation {
	return d.View(name, name)
}

// View returns a relation called name over table.
func (d *Dataset) View(name, table string) *Relation {
	return &Relation{ds: d, name: name, table: table}
}

func (d *Dataset) rows(table string) ([]relation.Row, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rows, ok := d.tables[table]
	return rows, ok
}

var builtins = relation.Builtins[*Relation]()
