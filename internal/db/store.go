package db

import "errors"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store is a string key-value store. A missing key is not an error: Get
// reports ok=false and callers fall back to their own default.
//
// There is no atomicity across separate Set calls. Writes that must land
// together go through Apply.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	// Apply performs every operation in b, or none of them.
	Apply(b *Batch) error
	// Keys lists stored keys that start with prefix, in ascending order.
	Keys(prefix string) ([]string, error)
	Close() error
}

type opKind int

const (
	opSet opKind = iota
	opRemove
)

type op struct {
	kind  opKind
	key   string
	value string
}

// Batch is an ordered list of writes applied as one unit by Store.Apply.
// A later write to the same key wins.
type Batch struct {
	ops []op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Set stages key=value.
func (b *Batch) Set(key, value string) {
	b.ops = append(b.ops, op{kind: opSet, key: key, value: value})
}

// Remove stages the deletion of key.
func (b *Batch) Remove(key string) {
	b.ops = append(b.ops, op{kind: opRemove, key: key})
}

// Len reports the number of staged operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Pending returns the staged value for key, if the batch sets it last.
func (b *Batch) Pending(key string) (string, bool) {
	for i := len(b.ops) - 1; i >= 0; i-- {
		if b.ops[i].key != key {
			continue
		}
		if b.ops[i].kind == opRemove {
			return "", false
		}
		return b.ops[i].value, true
	}
	return "", false
}
