package config

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/matzehuels/relgraph/pkg/adapter/memory"
	"github.com/matzehuels/relgraph/pkg/adapter/mongodb"
	"github.com/matzehuels/relgraph/pkg/adapter/sqldb"
	"github.com/matzehuels/relgraph/pkg/cache"
	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/relation"
)

// Info describes a registered relation.
type Info struct {
	Name    string   `json:"name"`
	Adapter string   `json:"adapter"`
	Source  string   `json:"source"`
	Methods []string `json:"methods"`
}

// Registry holds the relations a query may start from.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	relations map[string]relation.Queryable
	info      map[string]Info
	closers   []io.Closer
	hash      string
}

// NewRegistry returns an empty registry identified by hash.
func NewRegistry(hash string) *Registry {
	return &Registry{
		relations: make(map[string]relation.Queryable),
		info:      make(map[string]Info),
		hash:      hash,
	}
}

// Add registers rel under its name, replacing any previous entry.
func (r *Registry) Add(rel relation.Queryable, info Info) error {
	if err := errs.ValidateName("relation", rel.Name()); err != nil {
		return err
	}
	info.Name = rel.Name()
	if info.Methods == nil {
		info.Methods = []string{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.relations[rel.Name()] = rel
	r.info[rel.Name()] = info
	return nil
}

// Relation returns the relation registered under name.
func (r *Registry) Relation(name string) (relation.Queryable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rel, ok := r.relations[name]
	if !ok {
		return nil, errs.New(errs.ErrCodeRelationNotFound, "relation %q is not registered", name)
	}
	return rel, nil
}

// Names returns the registered relation names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.relations))
}

// Info returns descriptions of every relation, sorted by name.
func (r *Registry) Info() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.info))
	for _, name := range slices.Sorted(maps.Keys(r.info)) {
		out = append(out, r.info[name])
	}
	return out
}

// Hash identifies the configuration the registry was built from. It scopes
// cache keys so results from another configuration are never reused.
func (r *Registry) Hash() string { return r.hash }

// Close releases gateway connections.
func (r *Registry) Close() error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var errList []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

func (r *Registry) addCloser(c io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, c)
}

// defineMethods registers the configured methods of rel in sorted order
// through an adapter gateway's Define.
func defineMethods[R relation.Refinable[R]](
	define func(rel, name string, arity int, fn relation.MethodFunc[R]) error,
	rel string,
	methods map[string]Method,
) error {
	for _, name := range slices.Sorted(maps.Keys(methods)) {
		m := methods[name]
		var fn relation.MethodFunc[R]
		if len(m.Join) > 0 {
			fn = relation.JoinOn[R](m.Join)
		} else {
			fn = relation.RestrictBy[R](m.Restrict...)
		}
		if err := define(rel, name, m.Arity(), fn); err != nil {
			return err
		}
	}
	return nil
}

// Open connects every gateway and registers every relation. Memory relations
// are loaded from their inline rows and data files. On error, connections
// opened so far are closed.
func (c *Config) Open(ctx context.Context) (_ *Registry, err error) {
	reg := NewRegistry(c.hash)
	defer func() {
		if err != nil {
			_ = reg.Close()
		}
	}()

	var (
		mem   = make(map[string]*memory.Dataset)
		sqls  = make(map[string]*sqldb.Gateway)
		mongo = make(map[string]*mongodb.Gateway)
	)
	for _, name := range slices.Sorted(maps.Keys(c.Gateways)) {
		g := c.Gateways[name]
		switch g.Adapter {
		case AdapterMemory:
			mem[name] = memory.New()
		case AdapterSQL:
			gw, err := sqldb.Open(ctx, g.Driver, g.DSN)
			if err != nil {
				return nil, wrap(err, "gateway %s", name)
			}
			reg.addCloser(gw)
			sqls[name] = gw
		case AdapterMongo:
			gw, err := mongodb.Connect(ctx, g.URI, g.Database)
			if err != nil {
				return nil, wrap(err, "gateway %s", name)
			}
			reg.addCloser(gw)
			mongo[name] = gw
		}
	}

	hashes := []string{c.hash}
	for _, name := range c.RelationNames() {
		r := c.Relations[name]
		info := Info{
			Adapter: c.Gateways[r.Gateway].Adapter,
			Source:  r.Source,
			Methods: slices.Sorted(maps.Keys(r.Methods)),
		}
		var rel relation.Queryable
		switch info.Adapter {
		case AdapterMemory:
			ds := mem[r.Gateway]
			rows, sum, err := c.memoryRows(r)
			if err != nil {
				return nil, wrap(err, "relation %s", name)
			}
			if sum != "" {
				hashes = append(hashes, sum)
			}
			ds.Insert(r.Source, rows...)
			if err := defineMethods(ds.Define, name, r.Methods); err != nil {
				return nil, err
			}
			rel = ds.View(name, r.Source)
		case AdapterSQL:
			gw := sqls[r.Gateway]
			if err := defineMethods(gw.Define, name, r.Methods); err != nil {
				return nil, err
			}
			rel = gw.View(name, r.Source)
		case AdapterMongo:
			gw := mongo[r.Gateway]
			if err := defineMethods(gw.Define, name, r.Methods); err != nil {
				return nil, err
			}
			rel = gw.View(name, r.Source)
		}
		if err := reg.Add(rel, info); err != nil {
			return nil, err
		}
	}
	if len(hashes) > 1 {
		h, err := cache.HashJSON(hashes)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInternal, err, "hash config")
		}
		reg.hash = h
	}
	return reg, nil
}

// wrap adds context to err, keeping its code.
func wrap(err error, format string, args ...any) error {
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	return errs.Wrap(code, err, format, args...)
}

// memoryRows returns the inline rows followed by the rows of the data file,
// plus a hash of the data file contents when there is one.
func (c *Config) memoryRows(r Relation) ([]relation.Row, string, error) {
	rows := make([]relation.Row, 0, len(r.Rows))
	for _, row := range r.Rows {
		rows = append(rows, relation.Row(row))
	}
	if r.Data == "" {
		return rows, "", nil
	}
	data, err := os.ReadFile(filepath.Join(c.dir, r.Data))
	if err != nil {
		return nil, "", errs.Wrap(errs.ErrCodeNotFound, err, "read data file %s", r.Data)
	}
	var fileRows []relation.Row
	if err := json.Unmarshal(data, &fileRows); err != nil {
		return nil, "", errs.Wrap(errs.ErrCodeInvalidInput, err, "data file %s must hold a JSON array of objects", r.Data)
	}
	return append(rows, fileRows...), cache.Hash(data), nil
}
