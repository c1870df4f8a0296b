// Package record implements a record store: a table of fixed-schema
// tuples backed by a storage.Device through a buffer.Pool, with a
// tombstone-byte slot format and a small predicate-based scan.
package record

import (
	"fmt"

	"github.com/ado-labs/pagestore/value"
)

// maxAttrNameLen is the fixed, null-padded attribute name field width.
const maxAttrNameLen = 15

// Attr describes one fixed-width column.
type Attr struct {
	Name   string
	Type   value.Type
	Length int32 // only meaningful for value.String columns
}

// Schema describes a table's columns and which one is the key.
type Schema struct {
	Attrs   []Attr
	KeyAttr int // index into Attrs
}

func (s Schema) validate() error {
	if len(s.Attrs) == 0 {
		return fmt.Errorf("schema: must have at least one attribute")
	}
	if s.KeyAttr < 0 || s.KeyAttr >= len(s.Attrs) {
		return fmt.Errorf("schema: key attribute index %d out of range", s.KeyAttr)
	}
	for _, a := range s.Attrs {
		if len(a.Name) > maxAttrNameLen {
			return fmt.Errorf("schema: attribute name %q longer than %d bytes", a.Name, maxAttrNameLen)
		}
		if a.Type == value.String && a.Length <= 0 {
			return fmt.Errorf("schema: string attribute %q needs a positive length", a.Name)
		}
	}
	return nil
}

func attrSize(a Attr) int32 {
	switch a.Type {
	case value.Int32, value.Float32:
		return 4
	case value.Bool:
		return 1
	case value.String:
		return a.Length
	default:
		return 0
	}
}

// recordSize is the tombstone byte plus every attribute's fixed width.
func (s Schema) recordSize() int32 {
	size := int32(1)
	for _, a := range s.Attrs {
		size += attrSize(a)
	}
	return size
}

// KeyType returns the type of the table's designated key attribute, the
// type an index built over this table's key must share.
func (s Schema) KeyType() value.Type {
	return s.Attrs[s.KeyAttr].Type
}
