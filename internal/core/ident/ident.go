// Package ident provides the identity primitives used across the runtime:
// 128-bit random object IDs and deterministic type identifiers derived from
// stable type names.
package ident

import (
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// ID is a 128-bit random identifier assigned to every registered object.
// The zero value is the nil ID and never identifies a live object.
type ID uuid.UUID

// NilID is the zero identifier.
var NilID ID

// NewID returns a fresh random identifier.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the canonical textual form of an identifier.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NilID, fmt.Errorf("parse id %q: %w", s, err)
	}
	return ID(u), nil
}

// IsNil reports whether the identifier is the zero value.
func (id ID) IsNil() bool {
	return id == NilID
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// TypeID is a deterministic 128-bit identifier for a component or node type.
// Equal type names always produce equal TypeIDs, across processes and runs.
type TypeID struct {
	Hi uint64
	Lo uint64
}

// NilTypeID is the zero type identifier.
var NilTypeID TypeID

// Seed for the low word so the two halves are independent hashes of the name.
const typeIDLoSalt = "arbor/typeid/lo"

// TypeIDFromName derives a type identifier from a stable type name.
func TypeIDFromName(name string) TypeID {
	var d xxhash.Digest
	d.Reset()
	_, _ = d.WriteString(name)
	hi := d.Sum64()

	d.Reset()
	_, _ = d.WriteString(typeIDLoSalt)
	_, _ = d.WriteString(name)
	lo := d.Sum64()

	return TypeID{Hi: hi, Lo: lo}
}

// IsNil reports whether the type identifier is the zero value.
func (t TypeID) IsNil() bool {
	return t == NilTypeID
}

func (t TypeID) String() string {
	return fmt.Sprintf("%016x%016x", t.Hi, t.Lo)
}

// TypeNamer lets a type override the reflection-derived name used for its
// TypeID. Implement it on the pointer receiver of the type.
type TypeNamer interface {
	TypeName() string
}

// TypeNameOf returns the stable name for T. Types implementing TypeNamer
// provide their own name; everything else uses the import-path-qualified
// reflection name.
func TypeNameOf[T any]() string {
	var zero T
	if n, ok := any(&zero).(TypeNamer); ok {
		return n.TypeName()
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.PkgPath() != "" && t.Name() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// TypeIDOf returns the deterministic type identifier for T.
func TypeIDOf[T any]() TypeID {
	return TypeIDFromName(TypeNameOf[T]())
}
