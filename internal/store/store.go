// internal/store/store.go
package store

import (
	"context"
	"errors"
)

// ErrNoDocument is returned by FindOne when the filter matches nothing.
var ErrNoDocument = errors.New("no matching document")

// Op is a filter comparison operator.
type Op int

const (
	OpEq Op = iota
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
)

// Clause compares a single document field against a value.
type Clause struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of clauses. An empty filter matches every document
// in the collection.
type Filter []Clause

func Eq(field string, value any) Clause  { return Clause{Field: field, Op: OpEq, Value: value} }
func Gt(field string, value any) Clause  { return Clause{Field: field, Op: OpGt, Value: value} }
func Gte(field string, value any) Clause { return Clause{Field: field, Op: OpGte, Value: value} }
func Lt(field string, value any) Clause  { return Clause{Field: field, Op: OpLt, Value: value} }
func Lte(field string, value any) Clause { return Clause{Field: field, Op: OpLte, Value: value} }
func In(field string, value any) Clause  { return Clause{Field: field, Op: OpIn, Value: value} }

// Store is the document persistence boundary for the whole service. Documents
// are schemaless JSON values grouped into named collections; filters support
// equality, range, and set-membership comparisons on top-level fields.
//
// Update replaces the first matching document in full and reports whether the
// filter matched anything. Implementations must apply Update atomically with
// respect to concurrent calls on the same store; the ledger's conditional
// deduct depends on exactly that guarantee.
type Store interface {
	FindOne(ctx context.Context, collection string, filter Filter, out any) error
	Find(ctx context.Context, collection string, filter Filter, out any) error
	Insert(ctx context.Context, collection string, doc any) error
	Update(ctx context.Context, collection string, filter Filter, doc any) (bool, error)
	Upsert(ctx context.Context, collection string, filter Filter, doc any) error
	Delete(ctx context.Context, collection string, filter Filter) (bool, error)
}
