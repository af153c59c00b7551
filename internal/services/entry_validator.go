package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	pkgerrors "github.com/inkwell-cms/inkwell-backend/internal/pkg/errors"
	"github.com/inkwell-cms/inkwell-backend/internal/repos"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
	"github.com/inkwell-cms/inkwell-backend/internal/utils"
)

// EntryValue is one {apiKey, value} pair of a candidate entry payload.
type EntryValue struct {
	APIKey string `json:"api_key"`
	Value  any    `json:"value"`
}

// StagedRelation is the planned replacement edge set for one relation field.
type StagedRelation struct {
	Field     *types.ContentField `json:"-"`
	FieldID   uuid.UUID           `json:"field_id"`
	TargetIDs []uuid.UUID         `json:"target_ids"`
}

// StagedEntry is the validator's output: the typed field-value writes, the
// relation edge replacements, and any values the validator generated itself
// (derived slugs). Nothing is persisted until the entry service commits it.
type StagedEntry struct {
	FieldValues []*types.FieldValue
	Relations   []StagedRelation
	Generated   map[string]string
}

// MediaPayload is the shape a MEDIA field value must decode to. Size is in
// bytes.
type MediaPayload struct {
	URLs  []string    `json:"urls"`
	Files []MediaFile `json:"files,omitempty"`
}

type MediaFile struct {
	Name string `json:"name,omitempty"`
	Mime string `json:"mime,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// EntryValidator enforces a content type's schema against a candidate
// payload. Violations surface as *pkgerrors.ValidationError naming the field
// and rule; the first violation in field order wins.
type EntryValidator interface {
	ValidateAndStage(ctx context.Context, tx *gorm.DB, schema *types.ContentSchema, entryID *uuid.UUID, values []EntryValue) (*StagedEntry, error)
}

type entryValidator struct {
	log          *logger.Logger
	valueRepo    repos.FieldValueRepo
	uploadPrefix string
	slugMaxLen   int
}

func NewEntryValidator(baseLog *logger.Logger, valueRepo repos.FieldValueRepo, uploadPrefix string, slugMaxLen int) EntryValidator {
	if uploadPrefix == "" {
		uploadPrefix = "/uploads/"
	}
	if slugMaxLen <= 0 {
		slugMaxLen = utils.DefaultSlugMaxLength
	}
	return &entryValidator{
		log:          baseLog.With("service", "EntryValidator"),
		valueRepo:    valueRepo,
		uploadPrefix: uploadPrefix,
		slugMaxLen:   slugMaxLen,
	}
}

func (v *entryValidator) ValidateAndStage(ctx context.Context, tx *gorm.DB, schema *types.ContentSchema, entryID *uuid.UUID, values []EntryValue) (*StagedEntry, error) {
	payload := make(map[string]any, len(values))
	for _, val := range values {
		payload[val.APIKey] = val.Value
	}
	isUpdate := entryID != nil

	staged := &StagedEntry{Generated: map[string]string{}}

	for _, field := range schema.Fields {
		raw, hasKey := payload[field.APIKey]

		// Updates replace only the fields present in the payload; absent
		// keys are left untouched. Creates check every field.
		if !hasKey && isUpdate {
			continue
		}

		switch field.Type {
		case types.FieldTypeRelation:
			rel, err := v.stageRelation(field, raw)
			if err != nil {
				return nil, err
			}
			if rel != nil {
				staged.Relations = append(staged.Relations, *rel)
			}

		case types.FieldTypeSlug:
			value, err := v.stageSlug(ctx, tx, field, schema, payload, entryID, staged.Generated)
			if err != nil {
				return nil, err
			}
			if value != nil {
				staged.FieldValues = append(staged.FieldValues, value)
			}

		case types.FieldTypeMedia:
			value, err := v.stageMedia(ctx, tx, field, raw, entryID)
			if err != nil {
				return nil, err
			}
			if value != nil {
				staged.FieldValues = append(staged.FieldValues, value)
			}

		case types.FieldTypeText, types.FieldTypeRichText, types.FieldTypeNumber,
			types.FieldTypeBoolean, types.FieldTypeDate, types.FieldTypeJSON:
			value, err := v.stageScalar(ctx, tx, field, raw, entryID)
			if err != nil {
				return nil, err
			}
			if value != nil {
				staged.FieldValues = append(staged.FieldValues, value)
			}

		default:
			return nil, fmt.Errorf("field %s has unknown type %q: %w", field.APIKey, field.Type, pkgerrors.ErrInvalidArgument)
		}
	}

	return staged, nil
}

func (v *entryValidator) stageRelation(field *types.ContentField, raw any) (*StagedRelation, error) {
	if field.RelationConfig == nil {
		return nil, fmt.Errorf("relation field %s has no relation config: %w", field.APIKey, pkgerrors.ErrInvalidArgument)
	}

	ids, err := coerceIDList(raw)
	if err != nil {
		return nil, pkgerrors.NewValidation(field.APIKey, "relation", "%s must be a list of entry ids", field.APIKey)
	}
	if len(ids) == 0 {
		if field.IsRequired {
			return nil, pkgerrors.NewValidation(field.APIKey, "required", "%s is required", field.APIKey)
		}
		if raw == nil {
			return nil, nil
		}
		// Explicit empty list clears the relation.
		return &StagedRelation{Field: field, FieldID: field.ID, TargetIDs: nil}, nil
	}

	if rules := field.RelationRulesOrNil(); rules != nil {
		if rules.MinCount != nil && len(ids) < *rules.MinCount {
			return nil, pkgerrors.NewValidation(field.APIKey, "minCount", "%s must have at least %d related entries", field.APIKey, *rules.MinCount)
		}
		if rules.MaxCount != nil && len(ids) > *rules.MaxCount {
			return nil, pkgerrors.NewValidation(field.APIKey, "maxCount", "%s must have at most %d related entries", field.APIKey, *rules.MaxCount)
		}
	}

	return &StagedRelation{Field: field, FieldID: field.ID, TargetIDs: ids}, nil
}

func (v *entryValidator) stageSlug(ctx context.Context, tx *gorm.DB, field *types.ContentField, schema *types.ContentSchema, payload map[string]any, entryID *uuid.UUID, generated map[string]string) (*types.FieldValue, error) {
	raw := payload[field.APIKey]
	input, _ := raw.(string)

	if strings.TrimSpace(input) == "" {
		if field.SlugFrom == nil || *field.SlugFrom == "" {
			if field.IsRequired {
				return nil, pkgerrors.NewValidation(field.APIKey, "required", "%s is required", field.APIKey)
			}
			return nil, nil
		}
		sourceRaw, _ := payload[*field.SlugFrom].(string)
		if strings.TrimSpace(sourceRaw) == "" {
			return nil, pkgerrors.NewValidation(field.APIKey, "slugFrom", "%s cannot be derived: source field %s is empty", field.APIKey, *field.SlugFrom)
		}
		maxLen := v.slugMaxLen
		if field.MaxLength != nil && *field.MaxLength > 0 {
			maxLen = *field.MaxLength
		}
		input = utils.Slugify(sourceRaw, maxLen)
		generated[field.APIKey] = input
	}

	if field.MinLength != nil && len(input) < *field.MinLength {
		return nil, pkgerrors.NewValidation(field.APIKey, "minLength", "%s must be at least %d characters", field.APIKey, *field.MinLength)
	}
	if field.MaxLength != nil && len(input) > *field.MaxLength {
		return nil, pkgerrors.NewValidation(field.APIKey, "maxLength", "%s must be at most %d characters", field.APIKey, *field.MaxLength)
	}
	if field.IsUnique {
		exists, err := v.valueRepo.ExistsString(ctx, tx, field.ID, input, entryID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, pkgerrors.NewValidation(field.APIKey, "unique", "%s must be unique", field.APIKey)
		}
	}

	return &types.FieldValue{FieldID: field.ID, ValueString: &input}, nil
}

func (v *entryValidator) stageMedia(ctx context.Context, tx *gorm.DB, field *types.ContentField, raw any, entryID *uuid.UUID) (*types.FieldValue, error) {
	media, err := coerceMedia(raw)
	if err != nil {
		return nil, pkgerrors.NewValidation(field.APIKey, "media", "%s must be a media payload with a urls array", field.APIKey)
	}

	rules := field.MediaRulesOrDefault()
	if media == nil || len(media.URLs) == 0 {
		if field.IsRequired || rules.MinFiles > 0 {
			return nil, pkgerrors.NewValidation(field.APIKey, "required", "%s is required", field.APIKey)
		}
		return nil, nil
	}

	if len(media.URLs) < rules.MinFiles {
		return nil, pkgerrors.NewValidation(field.APIKey, "minFiles", "%s must have at least %d files", field.APIKey, rules.MinFiles)
	}
	if len(media.URLs) > rules.MaxFiles {
		return nil, pkgerrors.NewValidation(field.APIKey, "maxFiles", "%s must have at most %d files", field.APIKey, rules.MaxFiles)
	}
	for _, url := range media.URLs {
		if !strings.HasPrefix(url, v.uploadPrefix) {
			return nil, pkgerrors.NewValidation(field.APIKey, "media", "%s contains a url outside the upload path", field.APIKey)
		}
	}
	for _, file := range media.Files {
		if file.Mime != "" && !mimeAllowed(file.Mime, rules.AcceptMimeTypes) {
			return nil, pkgerrors.NewValidation(field.APIKey, "mimeType", "%s contains a file of unsupported type %s", field.APIKey, file.Mime)
		}
		if rules.MaxSizeMB != nil && float64(file.Size) > *rules.MaxSizeMB*1024*1024 {
			return nil, pkgerrors.NewValidation(field.APIKey, "maxSize", "%s contains a file larger than %.0f MB", field.APIKey, *rules.MaxSizeMB)
		}
	}

	// Canonical form: urls sorted, files passed through untouched. Sorting
	// makes content equality (and the uniqueness check) order-insensitive.
	sort.Strings(media.URLs)
	rawJSON, err := json.Marshal(media)
	if err != nil {
		return nil, err
	}

	if field.IsUnique {
		same, err := v.jsonValueExists(ctx, tx, field.ID, rawJSON, entryID)
		if err != nil {
			return nil, err
		}
		if same {
			return nil, pkgerrors.NewValidation(field.APIKey, "unique", "%s must be unique", field.APIKey)
		}
	}

	return &types.FieldValue{FieldID: field.ID, ValueJSON: datatypes.JSON(rawJSON)}, nil
}

func (v *entryValidator) stageScalar(ctx context.Context, tx *gorm.DB, field *types.ContentField, raw any, entryID *uuid.UUID) (*types.FieldValue, error) {
	if !hasTypedInput(field.Type, raw) {
		if field.IsRequired {
			return nil, pkgerrors.NewValidation(field.APIKey, "required", "%s is required", field.APIKey)
		}
		return nil, nil
	}

	switch field.Type {
	case types.FieldTypeText, types.FieldTypeRichText:
		str, ok := raw.(string)
		if !ok {
			return nil, pkgerrors.NewValidation(field.APIKey, "type", "%s must be a string", field.APIKey)
		}
		if field.MinLength != nil && len(str) < *field.MinLength {
			return nil, pkgerrors.NewValidation(field.APIKey, "minLength", "%s must be at least %d characters", field.APIKey, *field.MinLength)
		}
		if field.MaxLength != nil && len(str) > *field.MaxLength {
			return nil, pkgerrors.NewValidation(field.APIKey, "maxLength", "%s must be at most %d characters", field.APIKey, *field.MaxLength)
		}
		if field.IsUnique {
			exists, err := v.valueRepo.ExistsString(ctx, tx, field.ID, str, entryID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, pkgerrors.NewValidation(field.APIKey, "unique", "%s must be unique", field.APIKey)
			}
		}
		return &types.FieldValue{FieldID: field.ID, ValueString: &str}, nil

	case types.FieldTypeNumber:
		num, ok := coerceNumber(raw)
		if !ok {
			return nil, pkgerrors.NewValidation(field.APIKey, "type", "%s must be a number", field.APIKey)
		}
		if field.MinNumber != nil && num < *field.MinNumber {
			return nil, pkgerrors.NewValidation(field.APIKey, "minNumber", "%s must be at least %v", field.APIKey, *field.MinNumber)
		}
		if field.MaxNumber != nil && num > *field.MaxNumber {
			return nil, pkgerrors.NewValidation(field.APIKey, "maxNumber", "%s must be at most %v", field.APIKey, *field.MaxNumber)
		}
		if field.IsUnique {
			exists, err := v.valueRepo.ExistsNumber(ctx, tx, field.ID, num, entryID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, pkgerrors.NewValidation(field.APIKey, "unique", "%s must be unique", field.APIKey)
			}
		}
		return &types.FieldValue{FieldID: field.ID, ValueNumber: &num}, nil

	case types.FieldTypeBoolean:
		b, ok := coerceBool(raw)
		if !ok {
			return nil, pkgerrors.NewValidation(field.APIKey, "type", "%s must be a boolean", field.APIKey)
		}
		if field.IsUnique {
			exists, err := v.valueRepo.ExistsBoolean(ctx, tx, field.ID, b, entryID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, pkgerrors.NewValidation(field.APIKey, "unique", "%s must be unique", field.APIKey)
			}
		}
		return &types.FieldValue{FieldID: field.ID, ValueBoolean: &b}, nil

	case types.FieldTypeDate:
		date, ok := coerceDate(raw)
		if !ok {
			return nil, pkgerrors.NewValidation(field.APIKey, "type", "%s must be a valid date", field.APIKey)
		}
		if field.IsUnique {
			exists, err := v.valueRepo.ExistsDate(ctx, tx, field.ID, date, entryID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, pkgerrors.NewValidation(field.APIKey, "unique", "%s must be unique", field.APIKey)
			}
		}
		return &types.FieldValue{FieldID: field.ID, ValueDate: &date}, nil

	case types.FieldTypeJSON:
		rawJSON, ok := coerceJSON(raw)
		if !ok {
			return nil, pkgerrors.NewValidation(field.APIKey, "type", "%s must be valid JSON", field.APIKey)
		}
		if field.IsUnique {
			same, err := v.jsonValueExists(ctx, tx, field.ID, rawJSON, entryID)
			if err != nil {
				return nil, err
			}
			if same {
				return nil, pkgerrors.NewValidation(field.APIKey, "unique", "%s must be unique", field.APIKey)
			}
		}
		return &types.FieldValue{FieldID: field.ID, ValueJSON: datatypes.JSON(rawJSON)}, nil

	case types.FieldTypeSlug, types.FieldTypeRelation, types.FieldTypeMedia:
		return nil, fmt.Errorf("field %s of type %s cannot be staged as a scalar: %w", field.APIKey, field.Type, pkgerrors.ErrInvalidArgument)

	default:
		return nil, fmt.Errorf("field %s has unknown type %q: %w", field.APIKey, field.Type, pkgerrors.ErrInvalidArgument)
	}
}

// jsonValueExists deep-compares the candidate against every stored JSON value
// of the field after canonicalizing both sides.
func (v *entryValidator) jsonValueExists(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID, candidate []byte, excludeEntryID *uuid.UUID) (bool, error) {
	canonicalCandidate, err := canonicalJSON(candidate)
	if err != nil {
		return false, err
	}
	others, err := v.valueRepo.GetByFieldID(ctx, tx, fieldID, excludeEntryID)
	if err != nil {
		return false, err
	}
	for _, other := range others {
		if len(other.ValueJSON) == 0 {
			continue
		}
		canonicalOther, err := canonicalJSON(other.ValueJSON)
		if err != nil {
			continue
		}
		if bytes.Equal(canonicalCandidate, canonicalOther) {
			return true, nil
		}
	}
	return false, nil
}

// hasTypedInput applies the per-type emptiness rules from the payload
// contract: a value that is "empty" for its type counts as absent.
func hasTypedInput(fieldType types.FieldType, raw any) bool {
	if raw == nil {
		return false
	}
	switch fieldType {
	case types.FieldTypeRelation:
		ids, err := coerceIDList(raw)
		return err == nil && len(ids) > 0
	case types.FieldTypeMedia:
		media, err := coerceMedia(raw)
		return err == nil && media != nil && len(media.URLs) > 0
	case types.FieldTypeJSON:
		switch val := raw.(type) {
		case string:
			return strings.TrimSpace(val) != ""
		case map[string]any:
			return len(val) > 0
		case []any:
			return len(val) > 0
		default:
			return true
		}
	case types.FieldTypeText, types.FieldTypeRichText, types.FieldTypeSlug:
		str, ok := raw.(string)
		return !ok || str != ""
	case types.FieldTypeNumber, types.FieldTypeBoolean, types.FieldTypeDate:
		if str, ok := raw.(string); ok {
			return str != ""
		}
		return true
	default:
		return true
	}
}

func coerceIDList(raw any) ([]uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	var candidates []string
	switch val := raw.(type) {
	case string:
		candidates = []string{val}
	case []string:
		candidates = val
	case uuid.UUID:
		return []uuid.UUID{val}, nil
	case []uuid.UUID:
		return val, nil
	case []any:
		for _, item := range val {
			switch id := item.(type) {
			case string:
				candidates = append(candidates, id)
			case uuid.UUID:
				candidates = append(candidates, id.String())
			default:
				return nil, fmt.Errorf("relation id has unsupported type %T", item)
			}
		}
	default:
		return nil, fmt.Errorf("relation value has unsupported type %T", raw)
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		id, err := uuid.Parse(candidate)
		if err != nil {
			return nil, fmt.Errorf("relation id %q is not a uuid", candidate)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func coerceMedia(raw any) (*MediaPayload, error) {
	if raw == nil {
		return nil, nil
	}
	switch val := raw.(type) {
	case MediaPayload:
		clone := val
		return &clone, nil
	case *MediaPayload:
		if val == nil {
			return nil, nil
		}
		clone := *val
		return &clone, nil
	case map[string]any:
		encoded, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		var media MediaPayload
		if err := json.Unmarshal(encoded, &media); err != nil {
			return nil, err
		}
		return &media, nil
	default:
		return nil, fmt.Errorf("media value has unsupported type %T", raw)
	}
}

func coerceNumber(raw any) (float64, bool) {
	switch val := raw.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		num, err := val.Float64()
		return num, err == nil
	case string:
		num, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return num, err == nil
	default:
		return 0, false
	}
}

func coerceBool(raw any) (bool, bool) {
	switch val := raw.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return b, err == nil
	default:
		return false, false
	}
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

func coerceDate(raw any) (time.Time, bool) {
	switch val := raw.(type) {
	case time.Time:
		return val, true
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(val)); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func coerceJSON(raw any) ([]byte, bool) {
	switch val := raw.(type) {
	case string:
		if !json.Valid([]byte(val)) {
			return nil, false
		}
		return []byte(val), true
	case []byte:
		if !json.Valid(val) {
			return nil, false
		}
		return val, true
	case datatypes.JSON:
		return []byte(val), true
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return nil, false
		}
		return encoded, true
	}
}

// canonicalJSON re-marshals a JSON document so key order does not affect
// equality comparisons.
func canonicalJSON(raw []byte) ([]byte, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return json.Marshal(decoded)
}

func mimeAllowed(mime string, allowed []string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	for _, candidate := range allowed {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == mime {
			return true
		}
		// Config may list bare subtypes ("png") as a shorthand for
		// "image/png".
		if !strings.Contains(candidate, "/") && strings.HasSuffix(mime, "/"+candidate) {
			return true
		}
	}
	return false
}
