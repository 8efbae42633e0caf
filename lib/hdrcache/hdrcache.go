package hdrcache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/lib/xdg"
	"git.sr.ht/~rjarry/mailthread/models"
)

const keyPrefix = "header."

type CachedHeader struct {
	Envelope     models.Envelope
	InternalDate time.Time
	Size         uint32
	Created      time.Time
}

// Cache stores parsed message headers on disk so that folders can make
// them resident without reading the messages again. A nil *Cache is valid
// and caches nothing.
type Cache struct {
	db     *leveldb.DB
	path   string
	maxAge time.Duration
}

// DefaultDir returns the directory used when none is configured.
func DefaultDir() string {
	return xdg.CachePath("mailthread")
}

// Open opens (or creates) the database at path. Entries older than maxAge
// are removed right away, 0 keeps entries forever.
func Open(path string, maxAge time.Duration) (*Cache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed opening cache db: %w", err)
	}
	c := &Cache{db: db, path: path, maxAge: maxAge}
	log.Debugf("cache db opened: %s", path)
	if maxAge > 0 {
		if _, err := c.Purge(time.Now()); err != nil {
			log.Errorf("%s: %v", path, err)
		}
	}
	return c, nil
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

func dbKey(folder, key string) []byte {
	return []byte(keyPrefix + folder + "/" + key)
}

// Get returns the cached info for a message, with its envelope.
func (c *Cache) Get(folder, key string) (*models.MessageInfo, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.db.Get(dbKey(folder, key), nil)
	if err != nil {
		if !errors.Is(err, leveldb.ErrNotFound) {
			log.Errorf("cannot read cached header %s/%s: %v", folder, key, err)
		}
		return nil, false
	}
	ch := &CachedHeader{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(ch); err != nil {
		log.Errorf("cannot decode cached header %s/%s: %v", folder, key, err)
		return nil, false
	}
	log.Tracef("located cached header %s/%s", folder, key)
	env := ch.Envelope
	return &models.MessageInfo{
		Key:          key,
		Envelope:     &env,
		InternalDate: ch.InternalDate,
		Size:         ch.Size,
	}, true
}

// Put stores the envelope of mi. Infos without an envelope are ignored.
func (c *Cache) Put(folder string, mi *models.MessageInfo) error {
	if c == nil || mi.Envelope == nil {
		return nil
	}
	h := &CachedHeader{
		Envelope:     *mi.Envelope,
		InternalDate: mi.InternalDate,
		Size:         mi.Size,
		Created:      time.Now(),
	}
	var data bytes.Buffer
	if err := gob.NewEncoder(&data).Encode(h); err != nil {
		return fmt.Errorf("cannot encode header %s/%s: %w", folder, mi.Key, err)
	}
	if err := c.db.Put(dbKey(folder, mi.Key), data.Bytes(), nil); err != nil {
		return fmt.Errorf("cannot write header %s/%s: %w", folder, mi.Key, err)
	}
	return nil
}

func (c *Cache) Delete(folder, key string) error {
	if c == nil {
		return nil
	}
	return c.db.Delete(dbKey(folder, key), nil)
}

// Keys returns the cached message keys of a folder.
func (c *Cache) Keys(folder string) []string {
	if c == nil {
		return nil
	}
	prefix := dbKey(folder, "")
	iter := c.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()[len(prefix):]))
	}
	return keys
}

// Purge removes the entries created before now minus the max age.
func (c *Cache) Purge(now time.Time) (int, error) {
	if c == nil || c.maxAge <= 0 {
		return 0, nil
	}
	start := time.Now()
	var scanned, removed int
	batch := new(leveldb.Batch)
	iter := c.db.NewIterator(util.BytesPrefix([]byte(keyPrefix)), nil)
	for iter.Next() {
		scanned++
		ch := &CachedHeader{}
		err := gob.NewDecoder(bytes.NewReader(iter.Value())).Decode(ch)
		if err != nil || ch.Created.Add(c.maxAge).Before(now) {
			batch.Delete(append([]byte(nil), iter.Key()...))
			removed++
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return 0, err
	}
	if err := c.db.Write(batch, nil); err != nil {
		return 0, err
	}
	log.Debugf("%s: removed %d/%d expired entries in %s",
		c.path, removed, scanned, time.Since(start))
	return removed, nil
}
