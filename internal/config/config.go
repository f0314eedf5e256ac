package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/agenthands/ctreview/internal/core/model"
)

type ServerConfig struct {
	Port string `toml:"port"`
	// Mode is the gin mode: debug, release or test.
	Mode string `toml:"mode"`
}

type SQLiteConfig struct {
	Path     string `toml:"path"`
	PoolSize int    `toml:"pool_size"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type StoreConfig struct {
	// Backend selects the result store: sqlite, memgraph or memory.
	Backend  string         `toml:"backend"`
	Timeout  string         `toml:"timeout"`
	SQLite   SQLiteConfig   `toml:"sqlite"`
	Memgraph MemgraphConfig `toml:"memgraph"`
}

type ImagesConfig struct {
	Root string `toml:"root"`
	Size int    `toml:"size"`
	// MaxDimension bounds the width and height of a source image.
	MaxDimension int `toml:"max_dimension"`
}

// TaskConfig overrides where a task reads its catalog and images from.
// Empty fields keep the built-in defaults.
type TaskConfig struct {
	Catalog     string `toml:"catalog"`
	Subfolder   string `toml:"subfolder"`
	IDColumn    string `toml:"id_column"`
	ImageColumn string `toml:"image_column"`
}

type ReviewerConfig struct {
	ID           string `toml:"id"`
	Username     string `toml:"username"`
	Name         string `toml:"name"`
	PasswordHash string `toml:"password_hash"`
	Admin        bool   `toml:"admin"`
	Disabled     bool   `toml:"disabled"`
}

type Config struct {
	Server    ServerConfig          `toml:"server"`
	Store     StoreConfig           `toml:"store"`
	Images    ImagesConfig          `toml:"images"`
	Tasks     map[string]TaskConfig `toml:"tasks"`
	Reviewers []ReviewerConfig      `toml:"reviewers"`
}

const (
	BackendSQLite   = "sqlite"
	BackendMemgraph = "memgraph"
	BackendMemory   = "memory"
)

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Mode: "release"},
		Store: StoreConfig{
			Backend: BackendSQLite,
			Timeout: "5s",
			SQLite:  SQLiteConfig{Path: "data/results.db", PoolSize: 4},
			Memgraph: MemgraphConfig{
				URI: "bolt://localhost:7687",
			},
		},
		Images: ImagesConfig{Root: "images", Size: 256, MaxDimension: 8192},
		Tasks:  map[string]TaskConfig{},
	}
}

// Load reads a TOML file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides config values with any set environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Port, "PORT")
	set(&c.Server.Mode, "GIN_MODE")
	set(&c.Store.Backend, "STORE_BACKEND")
	set(&c.Store.Timeout, "STORE_TIMEOUT")
	set(&c.Store.SQLite.Path, "SQLITE_PATH")
	set(&c.Store.Memgraph.URI, "MEMGRAPH_URI")
	set(&c.Store.Memgraph.User, "MEMGRAPH_USER")
	set(&c.Store.Memgraph.Password, "MEMGRAPH_PASSWORD")
	set(&c.Images.Root, "IMAGE_ROOT")
	if v := getenv("IMAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Images.Size = n
		}
	}
	if v := getenv("IMAGE_MAX_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Images.MaxDimension = n
		}
	}
}

func (c *Config) Validate() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("config: store.sqlite.path is required")
		}
	case BackendMemgraph:
		if c.Store.Memgraph.URI == "" {
			return fmt.Errorf("config: store.memgraph.uri is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unsupported store backend %q", c.Store.Backend)
	}

	if _, err := c.Store.TimeoutDuration(); err != nil {
		return err
	}
	if c.Images.Size <= 0 {
		return fmt.Errorf("config: images.size must be positive")
	}
	if c.Images.MaxDimension < c.Images.Size {
		return fmt.Errorf("config: images.max_dimension must be at least images.size")
	}
	for name := range c.Tasks {
		if _, err := model.ParseTask(name); err != nil {
			return fmt.Errorf("config: tasks.%s: %w", name, err)
		}
	}

	ids := make(map[string]bool)
	usernames := make(map[string]bool)
	for i, r := range c.Reviewers {
		if r.ID == "" || r.Username == "" {
			return fmt.Errorf("config: reviewers[%d]: id and username are required", i)
		}
		if ids[r.ID] {
			return fmt.Errorf("config: duplicate reviewer id %q", r.ID)
		}
		if usernames[r.Username] {
			return fmt.Errorf("config: duplicate reviewer username %q", r.Username)
		}
		ids[r.ID] = true
		usernames[r.Username] = true
	}
	return nil
}

// TimeoutDuration parses Store.Timeout. An empty value disables the
// per-operation deadline.
func (s StoreConfig) TimeoutDuration() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: store.timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: store.timeout must not be negative")
	}
	return d, nil
}

// TaskSpecs returns the built-in task specs with catalog and subfolder
// overrides applied.
func (c *Config) TaskSpecs() map[model.Task]TaskEntry {
	specs := model.DefaultSpecs()
	out := make(map[model.Task]TaskEntry, len(specs))
	for task, spec := range specs {
		entry := TaskEntry{Spec: spec}
		if tc, ok := c.Tasks[string(task)]; ok {
			if tc.Catalog != "" {
				entry.Spec.CatalogPath = tc.Catalog
			}
			if tc.Subfolder != "" {
				entry.Spec.Subfolder = tc.Subfolder
			}
			entry.IDColumn = tc.IDColumn
			entry.ImageColumn = tc.ImageColumn
		}
		out[task] = entry
	}
	return out
}

// TaskEntry pairs a task spec with the catalog column names to read.
type TaskEntry struct {
	Spec        model.TaskSpec
	IDColumn    string
	ImageColumn string
}
