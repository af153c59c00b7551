package types

import "github.com/google/uuid"

// ContentSchema bundles a content type with its ordered field definitions.
// This is the unit every validator/expander/denorm pass works from, and the
// unit the schema cache stores.
type ContentSchema struct {
	ContentType *ContentType    `json:"content_type"`
	Fields      []*ContentField `json:"fields"`
}

func (s *ContentSchema) FieldByAPIKey(apiKey string) *ContentField {
	for _, f := range s.Fields {
		if f.APIKey == apiKey {
			return f
		}
	}
	return nil
}

func (s *ContentSchema) FieldByID(id uuid.UUID) *ContentField {
	for _, f := range s.Fields {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// RelationFields returns the RELATION-typed fields in schema order.
func (s *ContentSchema) RelationFields() []*ContentField {
	var out []*ContentField
	for _, f := range s.Fields {
		if f.Type == FieldTypeRelation {
			out = append(out, f)
		}
	}
	return out
}
