// Package config loads the relgraph TOML file that declares gateways,
// relations and their named methods.
//
// A minimal file:
//
//	[gateways.main]
//	adapter = "memory"
//
//	[relations.users]
//	gateway = "main"
//	data    = "users.json"
//	[relations.users.methods.by_name]
//	restrict = ["name"]
//
//	[relations.tasks]
//	gateway = "main"
//	[[relations.tasks.rows]]
//	user  = "Jane"
//	title = "Do something"
//	[relations.tasks.methods.for_users]
//	join = { user = "name" }
//
// [Load] parses and validates the file; [Config.Open] connects the gateways
// and returns a [Registry] of ready relations.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/relgraph/pkg/cache"
	errs "github.com/matzehuels/relgraph/pkg/errors"
)

// Adapter names.
const (
	AdapterMemory = "memory"
	AdapterSQL    = "sql"
	AdapterMongo  = "mongo"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "relgraph.toml"

// Config is a parsed config file.
type Config struct {
	Gateways  map[string]Gateway  `toml:"gateways"`
	Relations map[string]Relation `toml:"relations"`
	Cache     Cache               `toml:"cache"`
	Server    Server              `toml:"server"`

	dir  string
	hash string
}

// Gateway declares a data source.
type Gateway struct {
	Adapter  string `toml:"adapter"`
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Relation declares a relation over a gateway.
type Relation struct {
	Gateway string `toml:"gateway"`
	// Source is the table or collection; it defaults to the relation name.
	Source string `toml:"source"`
	// Data is a JSON file of rows, relative to the config file. Memory only.
	Data string `toml:"data"`
	// Rows are inline rows. Memory only.
	Rows    []map[string]any  `toml:"rows"`
	Methods map[string]Method `toml:"methods"`
}

// Method declares a named refinement. Exactly one of Restrict and Join is
// set.
type Method struct {
	// Restrict lists attributes restricted to the method's arguments, in
	// order. The method's arity is len(Restrict).
	Restrict []string `toml:"restrict"`
	// Join maps the relation's attributes to attributes of the argument,
	// typically a parent result. The method's arity is 1.
	Join map[string]string `toml:"join"`
}

// Arity returns the number of arguments the method takes.
func (m Method) Arity() int {
	if len(m.Join) > 0 {
		return 1
	}
	return len(m.Restrict)
}

// Cache configures the result cache.
type Cache struct {
	Backend string `toml:"backend"`
	URL     string `toml:"url"`
	Prefix  string `toml:"prefix"`
	TTL     string `toml:"ttl"`
}

// Server configures the HTTP API.
type Server struct {
	Addr        string `toml:"addr"`
	Concurrency int    `toml:"concurrency"`
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeNotFound, err, "config file %s", path)
		}
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes and validates a config. dir resolves relative data paths.
func Parse(data []byte, dir string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	cfg.dir = dir
	cfg.hash = cache.Hash(data)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for name, r := range c.Relations {
		if r.Source == "" {
			r.Source = name
			c.Relations[name] = r
		}
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheFile
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "relgraph:"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Concurrency == 0 {
		c.Server.Concurrency = 4
	}
}

// Validate checks names, references and adapter settings.
func (c *Config) Validate() error {
	for name, g := range c.Gateways {
		if err := errs.ValidateName("gateway", name); err != nil {
			return err
		}
		if err := g.validate(name); err != nil {
			return err
		}
	}
	for _, name := range c.RelationNames() {
		if err := c.validateRelation(name, c.Relations[name]); err != nil {
			return err
		}
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if err := errs.ValidateURL(c.Cache.URL, "redis", "rediss"); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "cache")
		}
	default:
		return errs.New(errs.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if c.Server.Concurrency < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "server concurrency must not be negative")
	}
	return nil
}

func (g Gateway) validate(name string) error {
	switch g.Adapter {
	case AdapterMemory:
	case AdapterSQL:
		if g.Driver == "" || g.DSN == "" {
			return errs.New(errs.ErrCodeInvalidConfig, "gateway %s: sql needs driver and dsn", name)
		}
	case AdapterMongo:
		if err := errs.ValidateURL(g.URI, "mongodb", "mongodb+srv"); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "gateway %s", name)
		}
		if g.Database == "" {
			return errs.New(errs.ErrCodeInvalidConfig, "gateway %s: mongo needs a database", name)
		}
	default:
		return errs.New(errs.ErrCodeInvalidConfig, "gateway %s: unknown adapter %q", name, g.Adapter)
	}
	return nil
}

func (c *Config) validateRelation(name string, r Relation) error {
	if err := errs.ValidateName("relation", name); err != nil {
		return err
	}
	g, ok := c.Gateways[r.Gateway]
	if !ok {
		return errs.New(errs.ErrCodeInvalidConfig, "relation %s: unknown gateway %q", name, r.Gateway)
	}
	if err := errs.ValidateName("source", r.Source); err != nil {
		return err
	}
	if g.Adapter != AdapterMemory && (r.Data != "" || len(r.Rows) > 0) {
		return errs.New(errs.ErrCodeInvalidConfig, "relation %s: data and rows need a memory gateway", name)
	}
	if r.Data != "" {
		if err := errs.ValidatePath(r.Data); err != nil {
			return err
		}
	}
	for mname, m := range r.Methods {
		if err := errs.ValidateName("method", mname); err != nil {
			return err
		}
		hasRestrict, hasJoin := len(m.Restrict) > 0, len(m.Join) > 0
		if hasRestrict == hasJoin {
			return errs.New(errs.ErrCodeInvalidConfig,
				"relation %s: method %s needs exactly one of restrict or join", name, mname)
		}
		for _, a := range m.Restrict {
			if err := errs.ValidateName("attribute", a); err != nil {
				return err
			}
		}
		for child, parent := range m.Join {
			if err := errs.ValidateName("attribute", child); err != nil {
				return err
			}
			if err := errs.ValidateName("attribute", parent); err != nil {
				return err
			}
		}
	}
	return nil
}

// RelationNames returns the declared relation names in sorted order.
func (c *Config) RelationNames() []string {
	names := make([]string, 0, len(c.Relations))
	for n := range c.Relations {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// CacheTTL returns the configured query TTL, or cache.TTLQuery.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return cache.TTLQuery, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || d < 0 {
		return 0, errs.New(errs.ErrCodeInvalidConfig, "invalid cache ttl %q", c.Cache.TTL)
	}
	return d, nil
}

// Dir returns the directory data paths are resolved against.
func (c *Config) Dir() string { return c.dir }

// Hash identifies the config contents.
func (c *Config) Hash() string { return c.hash }
