package memdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/btree"
)

var errConflict = errors.New("row changed by a concurrent transaction")

type rowKey struct {
	table string
	id    string
}

type pending struct {
	doc     any
	deleted bool
}

// txn is the write set of one transaction. Reads record the version they
// observed; commit fails if any of them moved. A txn belongs to the goroutine
// that started it.
type txn struct {
	reads  map[rowKey]uint64
	writes map[rowKey]pending
}

type txnKey struct{}

func txnFrom(ctx context.Context) *txn {
	tx, _ := ctx.Value(txnKey{}).(*txn)
	return tx
}

type row[T any] struct {
	doc     T
	version uint64
}

type tableOps interface {
	versionOf(id string) uint64
	apply(id string, p pending, version uint64)
}

type table[T any] struct {
	name string
	rows *btree.Map[string, row[T]]
}

func newTable[T any](name string) *table[T] {
	return &table[T]{name: name, rows: new(btree.Map[string, row[T]])}
}

func (t *table[T]) versionOf(id string) uint64 {
	r, ok := t.rows.Get(id)
	if !ok {
		return 0
	}
	return r.version
}

func (t *table[T]) apply(id string, p pending, version uint64) {
	if p.deleted {
		t.rows.Delete(id)
		return
	}
	t.rows.Set(id, row[T]{doc: p.doc.(T), version: version})
}

// lookup reads id through the transaction's own writes first
func lookup[T any](s *Store, ctx context.Context, t *table[T], id string) (T, bool) {
	var zero T
	tx := txnFrom(ctx)
	k := rowKey{table: t.name, id: id}
	if w, ok := tx.writes[k]; ok {
		if w.deleted {
			return zero, false
		}
		return w.doc.(T), true
	}

	s.mu.RLock()
	r, ok := t.rows.Get(id)
	s.mu.RUnlock()

	if _, seen := tx.reads[k]; !seen {
		tx.reads[k] = r.version
	}
	if !ok {
		return zero, false
	}
	return r.doc, true
}

func stage[T any](ctx context.Context, t *table[T], id string, doc T) {
	txnFrom(ctx).writes[rowKey{table: t.name, id: id}] = pending{doc: doc}
}

func unstage[T any](ctx context.Context, t *table[T], id string) {
	txnFrom(ctx).writes[rowKey{table: t.name, id: id}] = pending{deleted: true}
}

// scan visits a consistent copy of the table merged with the transaction's
// writes, in key order. Scanned rows are not validated at commit.
func scan[T any](s *Store, ctx context.Context, t *table[T], visit func(id string, doc T)) {
	// Copy retags the source tree, so it needs the write lock
	s.mu.Lock()
	snapshot := t.rows.Copy()
	s.mu.Unlock()

	tx := txnFrom(ctx)
	merged := new(btree.Map[string, T])
	snapshot.Scan(func(id string, r row[T]) bool {
		merged.Set(id, r.doc)
		return true
	})
	for k, w := range tx.writes {
		if k.table != t.name {
			continue
		}
		if w.deleted {
			merged.Delete(k.id)
		} else {
			merged.Set(k.id, w.doc.(T))
		}
	}

	merged.Scan(func(id string, doc T) bool {
		visit(id, doc)
		return true
	})
}

func (s *Store) commit(tx *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, seen := range tx.reads {
		if s.tables[k.table].versionOf(k.id) != seen {
			return fmt.Errorf("%w: %s/%s", errConflict, k.table, k.id)
		}
	}

	s.version++
	for k, w := range tx.writes {
		s.tables[k.table].apply(k.id, w, s.version)
	}
	return nil
}
