// Package history remembers submitted search queries and suggests them back
// while typing. Only query strings are kept; fetched records never are.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var queriesBucket = []byte("queries")

var ErrEmptyQuery = errors.New("empty query")

// Entry is one remembered query.
type Entry struct {
	Query    string    `json:"query"`
	Count    int       `json:"count"`
	LastUsed time.Time `json:"last_used"`
}

// Store persists entries in a bbolt file keyed by the normalized query.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(queriesBucket)
		return createErr
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key normalizes a query the way entries are keyed.
func Key(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Record stores query, bumping its count and last-used time. The most recent
// spelling wins.
func (s *Store) Record(query string) (Entry, error) {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return Entry{}, ErrEmptyQuery
	}

	var entry Entry
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(queriesBucket)
		key := []byte(Key(query))
		if data := b.Get(key); data != nil {
			if err := json.Unmarshal(data, &entry); err != nil {
				return err
			}
		}
		entry.Query = query
		entry.Count++
		entry.LastUsed = s.now()

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("recording query: %w", err)
	}
	return entry, nil
}

// All returns every entry, most recently used first.
func (s *Store) All() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(queriesBucket)
		return b.ForEach(func(_ []byte, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				// skip corrupt rows rather than hiding the whole history
				return nil
			}
			entries = append(entries, e)
			return nil
		})
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastUsed.After(entries[j].LastUsed)
	})
	return entries, err
}

// Recent returns up to limit entries, most recent first. A limit <= 0 means
// no limit.
func (s *Store) Recent(limit int) ([]Entry, error) {
	entries, err := s.All()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, err
}

// Delete forgets one query. Deleting an unknown query is not an error.
func (s *Store) Delete(query string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(queriesBucket).Delete([]byte(Key(query)))
	})
}

// Prune keeps the keep most recent entries and returns the removed ones.
func (s *Store) Prune(keep int) ([]Entry, error) {
	if keep <= 0 {
		return nil, nil
	}
	entries, err := s.All()
	if err != nil {
		return nil, err
	}
	if len(entries) <= keep {
		return nil, nil
	}

	stale := entries[keep:]
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(queriesBucket)
		for _, e := range stale {
			if err := b.Delete([]byte(Key(e.Query))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pruning history: %w", err)
	}
	return stale, nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(queriesBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(queriesBucket)
		return err
	})
}
