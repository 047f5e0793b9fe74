package field

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type FieldType string

const (
	TypeText          FieldType = "text"
	TypeNumericRating FieldType = "numeric_rating"
	TypeBoolean       FieldType = "boolean"
	TypeSingleChoice  FieldType = "single_choice"
)

func (t FieldType) Valid() bool {
	switch t {
	case TypeText, TypeNumericRating, TypeBoolean, TypeSingleChoice:
		return true
	}
	return false
}

// Config carries the type-specific settings of a field. Only the slot
// matching the field's type is meaningful.
type Config struct {
	MaxRating int      `json:"max_rating,omitempty"` // numeric_rating: scale upper bound
	Options   []string `json:"options,omitempty"`    // single_choice: allowed values, ordered
	MaxLength int      `json:"max_length,omitempty"` // text: optional length cap
}

// Value / Scan let gorm persist the config as a JSON column.
func (c Config) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *Config) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = Config{}
		return nil
	}
	return fmt.Errorf("unsupported config column type %T", src)
}

func (c Config) HasOption(value string) bool {
	for _, o := range c.Options {
		if o == value {
			return true
		}
	}
	return false
}

// CustomField is a user-defined, typed metadata slot. Identity is immutable;
// config may be edited. Name is unique within a workspace.
type CustomField struct {
	ID          uint64    `json:"id"`
	WorkspaceID uint64    `json:"workspace_id" gorm:"not null;uniqueIndex:uidx_fields_workspace_name,priority:1"`
	Name        string    `json:"name" gorm:"not null;uniqueIndex:uidx_fields_workspace_name,priority:2"`
	Type        FieldType `json:"field_type" gorm:"column:field_type;not null"`
	Config      Config    `json:"config" gorm:"type:jsonb"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FieldSchema is a named, ordered grouping of reusable fields.
type FieldSchema struct {
	ID          uint64    `json:"id"`
	WorkspaceID uint64    `json:"workspace_id" gorm:"not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SchemaField is the schema<->field junction with explicit ordering.
type SchemaField struct {
	SchemaID     uint64 `json:"schema_id" gorm:"primaryKey;autoIncrement:false"`
	FieldID      uint64 `json:"field_id" gorm:"primaryKey;autoIncrement:false"`
	DisplayOrder int    `json:"display_order" gorm:"not null;default:0"`
}

// FieldValue stores one field's value for one item. Exactly one typed slot is
// set, matching the field's declared type. Unique per (item, field).
type FieldValue struct {
	ItemID      uint64    `json:"item_id" gorm:"primaryKey;autoIncrement:false"`
	FieldID     uint64    `json:"field_id" gorm:"primaryKey;autoIncrement:false"`
	TextValue   *string   `json:"text_value,omitempty"`
	NumberValue *int      `json:"number_value,omitempty"`
	BoolValue   *bool     `json:"bool_value,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var errEmptyValue = errors.New("no value slot set")

// ValidateValue checks a value against the field's type and config before it
// is written. Exhaustive over FieldType.
func (f *CustomField) ValidateValue(v *FieldValue) error {
	switch f.Type {
	case TypeText:
		if v.TextValue == nil {
			return errEmptyValue
		}
		if f.Config.MaxLength > 0 && len(*v.TextValue) > f.Config.MaxLength {
			return fmt.Errorf("text exceeds max length %d", f.Config.MaxLength)
		}
		return nil
	case TypeNumericRating:
		if v.NumberValue == nil {
			return errEmptyValue
		}
		if *v.NumberValue < 1 || *v.NumberValue > f.Config.MaxRating {
			return fmt.Errorf("rating %d outside [1, %d]", *v.NumberValue, f.Config.MaxRating)
		}
		return nil
	case TypeBoolean:
		if v.BoolValue == nil {
			return errEmptyValue
		}
		return nil
	case TypeSingleChoice:
		if v.TextValue == nil {
			return errEmptyValue
		}
		if !f.Config.HasOption(*v.TextValue) {
			return fmt.Errorf("%q is not a configured option", *v.TextValue)
		}
		return nil
	}
	return fmt.Errorf("unknown field type %q", f.Type)
}

// ValidateConfig checks the type-specific config on create/update.
func (f *CustomField) ValidateConfig() error {
	switch f.Type {
	case TypeText:
		if f.Config.MaxLength < 0 {
			return errors.New("max_length can't be negative")
		}
		return nil
	case TypeNumericRating:
		if f.Config.MaxRating < 1 {
			return errors.New("numeric_rating needs max_rating >= 1")
		}
		return nil
	case TypeBoolean:
		return nil
	case TypeSingleChoice:
		if len(f.Config.Options) == 0 {
			return errors.New("single_choice needs at least one option")
		}
		seen := make(map[string]bool, len(f.Config.Options))
		for _, o := range f.Config.Options {
			if seen[o] {
				return fmt.Errorf("duplicate option %q", o)
			}
			seen[o] = true
		}
		return nil
	}
	return fmt.Errorf("unknown field type %q", f.Type)
}
