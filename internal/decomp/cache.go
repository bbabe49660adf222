package decomp

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"ncsdec/internal/actions"
	"ncsdec/internal/nss"
)

// Current schema version - increment when tablePayload format changes.
const tableCacheSchemaVersion uint16 = 1

// Digest keys cached action tables by the SHA-256 of their source text.
type Digest [sha256.Size]byte

// KeyFor computes the cache key for an nwscript source.
func KeyFor(source []byte) Digest {
	return sha256.Sum256(source)
}

// TableCache stores parsed action tables on disk so batch runs do not
// re-parse an 800-entry catalogue per invocation.
// Thread-safe for concurrent access.
type TableCache struct {
	mu  sync.RWMutex
	dir string
}

// tablePayload is the serialized table form.
type tablePayload struct {
	Schema  uint16
	Entries []tableEntry
}

type tableEntry struct {
	Present  bool
	Name     string
	Return   uint8
	Params   []uint8
	Defaults []string
}

// OpenTableCache initializes the cache at the standard location.
func OpenTableCache(app string) (*TableCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &TableCache{dir: dir}, nil
}

func (c *TableCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "actions", hexKey+".mp")
}

// Put serializes and writes a table to the cache atomically.
func (c *TableCache) Put(key Digest, table *actions.Table) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(tableToPayload(table)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a table from the cache. The bool reports a hit; a payload
// with a stale schema is a miss, not an error.
func (c *TableCache) Get(key Digest) (*actions.Table, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload tablePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, err
	}
	if payload.Schema != tableCacheSchemaVersion {
		return nil, false, nil
	}
	return payloadToTable(&payload), true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *TableCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "actions"))
}

func tableToPayload(table *actions.Table) *tablePayload {
	snap := table.Snapshot()
	payload := &tablePayload{
		Schema:  tableCacheSchemaVersion,
		Entries: make([]tableEntry, len(snap)),
	}
	for i, a := range snap {
		if a == nil {
			continue
		}
		e := &payload.Entries[i]
		e.Present = true
		e.Name = a.Name
		e.Return = uint8(a.Return.Kind)
		e.Params = make([]uint8, len(a.Params))
		for j, p := range a.Params {
			e.Params[j] = uint8(p.Kind)
		}
		e.Defaults = a.Defaults
	}
	return payload
}

func payloadToTable(payload *tablePayload) *actions.Table {
	entries := make([]*actions.Action, len(payload.Entries))
	for i := range payload.Entries {
		e := &payload.Entries[i]
		if !e.Present {
			continue
		}
		a := &actions.Action{
			Name:     e.Name,
			Return:   nss.Type{Kind: nss.TypeKind(e.Return)},
			Defaults: e.Defaults,
		}
		a.Params = make([]nss.Type, len(e.Params))
		for j, k := range e.Params {
			a.Params[j] = nss.Type{Kind: nss.TypeKind(k)}
		}
		entries[i] = a
	}
	return actions.Restore(entries)
}
