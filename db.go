// Package argusdb is the embeddable entry point: a Database maps collection
// names to the collections they own, handling filesystem name sanitization
// and recovery-on-open (§3 "Database (DB)", §5, §6 "CREATE COLLECTION /
// DROP COLLECTION / SHOW COLLECTIONS").
package argusdb

import (
	"context"
	"fmt"
	"os"
	"sync"

	"argusdb/internal/block"
	"argusdb/internal/collection"
	"argusdb/internal/common"
)

// Options configures a Database. Backend is the segment storage surface
// (local disk or S3); RootDir is always a local filesystem path because
// recovery needs to enumerate collection subdirectories and block.Backend
// has no list operation (§5, and see DESIGN.md). LogDir defaults to
// RootDir when empty.
type Options struct {
	Backend           block.Backend
	RootDir           string
	LogDir            string
	CollectionOptions collection.Options
}

// Database is a mapping collection-name -> *collection.Collection (§3
// "Database (DB)"). A single mutex guards the map itself; each
// collection's own mu guards its data, so concurrent operations on
// different collections don't contend here.
type Database struct {
	mu       sync.Mutex
	backend  block.Backend
	rootDir  string
	logDir   string
	collOpts collection.Options
	colls    map[string]*collection.Collection
}

// sanitizeName escapes every byte outside [a-zA-Z0-9] as a lowercase
// two-hex-digit `_xx` sequence (§3: "replacing every non-alphanumeric byte
// with `_xx`"), so `user/data` becomes `user_2fdata`.
func sanitizeName(name string) string {
	var b []byte
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b = append(b, c)
		default:
			b = append(b, fmt.Sprintf("_%02x", c)...)
		}
	}
	return string(b)
}

// Open creates opts.RootDir if absent, then recovers every existing
// collection by scanning one level of subdirectories (§5, §3).
func Open(ctx context.Context, opts Options) (*Database, error) {
	if opts.LogDir == "" {
		opts.LogDir = opts.RootDir
	}
	if err := os.MkdirAll(opts.RootDir, 0o755); err != nil {
		return nil, common.Wrap(common.ErrIO, "create database root directory", err)
	}

	db := &Database{
		backend:  opts.Backend,
		rootDir:  opts.RootDir,
		logDir:   opts.LogDir,
		collOpts: opts.CollectionOptions,
		colls:    make(map[string]*collection.Collection),
	}

	entries, err := os.ReadDir(opts.RootDir)
	if err != nil {
		return nil, common.Wrap(common.ErrIO, "scan database root directory", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sanitized := entry.Name()
		c, err := collection.Open(ctx, db.backend, sanitized, db.logDir+"/"+sanitized, sanitized, db.collOpts)
		if err != nil {
			return nil, err
		}
		db.colls[sanitized] = c
	}
	return db, nil
}

// CreateCollection implements `CREATE COLLECTION name` (§6): a fresh,
// empty collection under name's sanitized directory.
func (db *Database) CreateCollection(ctx context.Context, name string) (*collection.Collection, error) {
	sanitized := sanitizeName(name)

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.colls[sanitized]; exists {
		return nil, common.AlreadyExistsf("collection %q already exists", name)
	}

	c, err := collection.New(ctx, db.backend, sanitized, db.logDir+"/"+sanitized, name, db.collOpts)
	if err != nil {
		return nil, err
	}
	db.colls[sanitized] = c
	return c, nil
}

// DropCollection implements `DROP COLLECTION name` (§6): unlinks the
// collection's segments and write-ahead log, then forgets it.
func (db *Database) DropCollection(ctx context.Context, name string) error {
	sanitized := sanitizeName(name)

	db.mu.Lock()
	c, exists := db.colls[sanitized]
	if exists {
		delete(db.colls, sanitized)
	}
	db.mu.Unlock()

	if !exists {
		return common.NotFoundf("collection %q not found", name)
	}
	return c.Drop(ctx)
}

// ShowCollections implements `SHOW COLLECTIONS` (§6), returning each
// collection's original, non-sanitized name.
func (db *Database) ShowCollections() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	names := make([]string, 0, len(db.colls))
	for _, c := range db.colls {
		names = append(names, c.Name)
	}
	return names
}

// Collection looks up a collection by its original name, satisfying
// query.DB for the query executor.
func (db *Database) Collection(name string) (*collection.Collection, bool) {
	sanitized := sanitizeName(name)

	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.colls[sanitized]
	return c, ok
}

// Close closes every open collection.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var first error
	for _, c := range db.colls {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
