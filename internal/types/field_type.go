package types

import "fmt"

// FieldType is the closed set of storage types a ContentField can declare.
type FieldType string

const (
	FieldTypeText     FieldType = "TEXT"
	FieldTypeRichText FieldType = "RICH_TEXT"
	FieldTypeNumber   FieldType = "NUMBER"
	FieldTypeBoolean  FieldType = "BOOLEAN"
	FieldTypeDate     FieldType = "DATE"
	FieldTypeJSON     FieldType = "JSON"
	FieldTypeSlug     FieldType = "SLUG"
	FieldTypeRelation FieldType = "RELATION"
	FieldTypeMedia    FieldType = "MEDIA"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeRichText, FieldTypeNumber, FieldTypeBoolean,
		FieldTypeDate, FieldTypeJSON, FieldTypeSlug, FieldTypeRelation, FieldTypeMedia:
		return true
	}
	return false
}

// RelationKind determines the edge table and the cardinality enforced on
// write: MANY_TO_MANY rows live in content_relation_m2m, everything else in
// content_relation.
type RelationKind string

const (
	RelationOneToOne   RelationKind = "ONE_TO_ONE"
	RelationOneToMany  RelationKind = "ONE_TO_MANY"
	RelationManyToOne  RelationKind = "MANY_TO_ONE"
	RelationManyToMany RelationKind = "MANY_TO_MANY"
)

func (k RelationKind) Valid() bool {
	switch k {
	case RelationOneToOne, RelationOneToMany, RelationManyToOne, RelationManyToMany:
		return true
	}
	return false
}

// ManyToMany reports whether edges for this kind live in the M2M table.
func (k RelationKind) ManyToMany() bool { return k == RelationManyToMany }

// SingleValued reports whether at most one target may be linked per source.
func (k RelationKind) SingleValued() bool {
	switch k {
	case RelationOneToOne, RelationManyToOne:
		return true
	case RelationOneToMany, RelationManyToMany:
		return false
	default:
		return false
	}
}

func ParseRelationKind(s string) (RelationKind, error) {
	k := RelationKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown relation kind %q", s)
	}
	return k, nil
}
