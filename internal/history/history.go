package history

import (
	"errors"
	"fmt"

	"github.com/pders01/userdir/internal/debuglog"
)

// DefaultLimit is the number of queries kept when no limit is configured.
const DefaultLimit = 200

// History pairs the persistent store with the suggestion index.
type History struct {
	store *Store
	index *index
	limit int
}

// Open loads the history database at path and indexes its entries. limit
// bounds the number of remembered queries.
func Open(path string, limit int) (*History, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	store, err := NewStore(path)
	if err != nil {
		return nil, err
	}

	idx, err := newIndex()
	if err != nil {
		store.Close()
		return nil, err
	}

	h := &History{store: store, index: idx, limit: limit}
	if err := h.reindexAll(); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) reindexAll() error {
	entries, err := h.store.All()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	if err := h.index.put(entries...); err != nil {
		return fmt.Errorf("indexing history: %w", err)
	}
	debuglog.Debugf("history: indexed %d queries", len(entries))
	return nil
}

// Record remembers a submitted query. Blank queries are ignored.
func (h *History) Record(query string) error {
	entry, err := h.store.Record(query)
	if errors.Is(err, ErrEmptyQuery) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := h.index.put(entry); err != nil {
		return fmt.Errorf("indexing query: %w", err)
	}

	stale, err := h.store.Prune(h.limit)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		queries := make([]string, len(stale))
		for i, e := range stale {
			queries[i] = e.Query
		}
		if err := h.index.remove(queries...); err != nil {
			return fmt.Errorf("unindexing pruned queries: %w", err)
		}
		debuglog.Debugf("history: pruned %d queries", len(stale))
	}
	return nil
}

// Suggest returns remembered queries matching prefix word by word, most
// recent first. A blank prefix yields the most recent queries.
func (h *History) Suggest(prefix string, limit int) ([]Entry, error) {
	if Key(prefix) == "" {
		return h.store.Recent(limit)
	}
	return h.index.suggest(prefix, limit)
}

// Complete returns the most recent remembered query extending prefix, or ""
// when nothing longer matches.
func (h *History) Complete(prefix string) string {
	entries, err := h.Suggest(prefix, 5)
	if err != nil {
		debuglog.Warnf("history: suggest %q: %v", prefix, err)
		return ""
	}
	for _, e := range entries {
		if Key(e.Query) != Key(prefix) {
			return e.Query
		}
	}
	return ""
}

// Recent returns up to limit queries, most recent first.
func (h *History) Recent(limit int) ([]Entry, error) {
	return h.store.Recent(limit)
}

// Forget removes one query.
func (h *History) Forget(query string) error {
	if err := h.store.Delete(query); err != nil {
		return fmt.Errorf("deleting query: %w", err)
	}
	return h.index.remove(query)
}

// Clear removes every remembered query.
func (h *History) Clear() error {
	entries, err := h.store.All()
	if err != nil {
		return err
	}
	if err := h.store.Clear(); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	queries := make([]string, len(entries))
	for i, e := range entries {
		queries[i] = e.Query
	}
	return h.index.remove(queries...)
}

func (h *History) Close() error {
	return errors.Join(h.index.close(), h.store.Close())
}
