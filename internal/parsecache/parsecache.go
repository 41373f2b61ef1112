// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Package parsecache stores rendered parse results in a SQLite database
// keyed by a hash of their input.
package parsecache

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"zombiezen.com/go/log"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitemigration"
	"zombiezen.com/go/sqlite/sqlitex"
)

// version is mixed into every key.
// Changing it invalidates all existing entries.
const version = "lupin-parsecache-1"

// Key identifies a cache entry.
type Key [sha256.Size]byte

// NewKey returns the key for the output of parsing source
// with the named grammar rule and rendering it in the named format.
func NewKey(source, rule, format string) Key {
	h := sha256.New()
	for _, s := range []string{version, rule, format, source} {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	var k Key
	h.Sum(k[:0])
	return k
}

// String returns the key in hexadecimal.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Cache is a handle to a cache database.
// It is safe to use from multiple goroutines.
type Cache struct {
	db  *sqlitemigration.Pool
	now func() time.Time
}

// Open returns a cache backed by the SQLite database at path,
// creating it if necessary.
// The database is opened lazily on first use.
func Open(path string) *Cache {
	return &Cache{
		db: sqlitemigration.NewPool(path, loadSchema(), sqlitemigration.Options{
			Flags:       sqlite.OpenCreate | sqlite.OpenReadWrite,
			PrepareConn: prepareConn,
			OnStartMigrate: func() {
				log.Debugf(context.Background(), "Migrating parse cache %s...", path)
			},
			OnError: func(err error) {
				log.Errorf(context.Background(), "Parse cache migration: %v", err)
			},
		}),
		now: time.Now,
	}
}

// Close releases all resources associated with the cache.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the output stored for k.
// If there is no such entry, Get returns (nil, false, nil).
func (c *Cache) Get(ctx context.Context, k Key) (output []byte, found bool, err error) {
	conn, err := c.db.Get(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("get %v from parse cache: %v", k, err)
	}
	defer c.db.Put(conn)

	err = sqlitex.ExecuteFS(conn, sqlFiles(), "get.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":key": k.String(),
			":now": c.now().UnixMilli(),
		},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			output = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, output)
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("get %v from parse cache: %v", k, err)
	}
	if found {
		log.Debugf(ctx, "Parse cache hit for %v", k)
	}
	return output, found, nil
}

// Put stores output for k, replacing any existing entry.
func (c *Cache) Put(ctx context.Context, k Key, output []byte) error {
	conn, err := c.db.Get(ctx)
	if err != nil {
		return fmt.Errorf("put %v in parse cache: %v", k, err)
	}
	defer c.db.Put(conn)

	if output == nil {
		output = []byte{}
	}
	err = sqlitex.ExecuteFS(conn, sqlFiles(), "put.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":key":    k.String(),
			":output": output,
			":now":    c.now().UnixMilli(),
		},
	})
	if err != nil {
		return fmt.Errorf("put %v in parse cache: %v", k, err)
	}
	return nil
}

// Prune removes all but the keep most recently used entries
// and returns the number of entries removed.
func (c *Cache) Prune(ctx context.Context, keep int) (n int, err error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune parse cache: negative limit %d", keep)
	}
	conn, err := c.db.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune parse cache: %v", err)
	}
	defer c.db.Put(conn)

	defer sqlitex.Save(conn)(&err)
	err = sqlitex.ExecuteFS(conn, sqlFiles(), "prune.sql", &sqlitex.ExecOptions{
		Named: map[string]any{":keep": keep},
	})
	if err != nil {
		return 0, fmt.Errorf("prune parse cache: %v", err)
	}
	n = conn.Changes()
	if n > 0 {
		log.Infof(ctx, "Pruned %d parse cache entries", n)
	}
	return n, nil
}

// Len returns the number of entries in the cache.
func (c *Cache) Len(ctx context.Context) (n int, err error) {
	conn, err := c.db.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("count parse cache entries: %v", err)
	}
	defer c.db.Put(conn)

	err = sqlitex.ExecuteFS(conn, sqlFiles(), "count.sql", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("count parse cache entries: %v", err)
	}
	return n, nil
}

func prepareConn(conn *sqlite.Conn) error {
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode = wal;", nil); err != nil {
		return err
	}
	return nil
}

//go:embed sql/*.sql
//go:embed sql/schema/*.sql
var rawSQLFiles embed.FS

func sqlFiles() fs.FS {
	sub, err := fs.Sub(rawSQLFiles, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

var loadSchema = sync.OnceValue(func() sqlitemigration.Schema {
	var schema sqlitemigration.Schema
	for i := 1; ; i++ {
		migration, err := fs.ReadFile(sqlFiles(), fmt.Sprintf("schema/%02d.sql", i))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			panic(err)
		}
		schema.Migrations = append(schema.Migrations, string(migration))
	}
	return schema
})
