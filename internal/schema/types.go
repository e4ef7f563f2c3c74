// Package schema defines Content types and their field schemas, compiles
// field validation rules into constraints, and validates user-authored
// Content definitions.
package schema

import (
	"slices"
	"strings"
)

// FieldType is the type of a content field. The set is closed; every
// consumer dispatches on it with an exhaustive switch.
type FieldType string

// Scalar field types.
const (
	FieldTypeSingleLineText   FieldType = "single_line_text"
	FieldTypeMultiLineText    FieldType = "multi_line_text"
	FieldTypeRichText         FieldType = "rich_text"
	FieldTypeNumberInteger    FieldType = "number_integer"
	FieldTypeNumberDecimal    FieldType = "number_decimal"
	FieldTypeDateTime         FieldType = "date_time"
	FieldTypeDate             FieldType = "date"
	FieldTypeFileReference    FieldType = "file_reference"
	FieldTypeContentReference FieldType = "content_reference"
	FieldTypeURLHandle        FieldType = "url_handle"
	FieldTypeColor            FieldType = "color"
	FieldTypeBoolean          FieldType = "boolean"
	FieldTypeMoney            FieldType = "money"
	FieldTypeURL              FieldType = "url"
	FieldTypeDimension        FieldType = "dimension"
	FieldTypeVolume           FieldType = "volume"
	FieldTypeWeight           FieldType = "weight"
)

// List field types.
const (
	FieldTypeListSingleLineText   FieldType = "list.single_line_text"
	FieldTypeListNumberInteger    FieldType = "list.number_integer"
	FieldTypeListNumberDecimal    FieldType = "list.number_decimal"
	FieldTypeListDateTime         FieldType = "list.date_time"
	FieldTypeListDate             FieldType = "list.date"
	FieldTypeListFileReference    FieldType = "list.file_reference"
	FieldTypeListContentReference FieldType = "list.content_reference"
	FieldTypeListColor            FieldType = "list.color"
	FieldTypeListURL              FieldType = "list.url"
	FieldTypeListDimension        FieldType = "list.dimension"
	FieldTypeListVolume           FieldType = "list.volume"
	FieldTypeListWeight           FieldType = "list.weight"
)

const listPrefix = "list."

// FieldTypes lists every supported field type in display order.
var FieldTypes = []FieldType{
	FieldTypeSingleLineText, FieldTypeMultiLineText, FieldTypeRichText,
	FieldTypeNumberInteger, FieldTypeNumberDecimal,
	FieldTypeDateTime, FieldTypeDate,
	FieldTypeFileReference, FieldTypeContentReference,
	FieldTypeListSingleLineText, FieldTypeListNumberInteger, FieldTypeListNumberDecimal,
	FieldTypeListDateTime, FieldTypeListDate, FieldTypeListFileReference,
	FieldTypeListContentReference, FieldTypeListColor, FieldTypeListURL,
	FieldTypeListDimension, FieldTypeListVolume, FieldTypeListWeight,
	FieldTypeURLHandle, FieldTypeColor, FieldTypeBoolean, FieldTypeMoney,
	FieldTypeURL, FieldTypeDimension, FieldTypeVolume, FieldTypeWeight,
}

var validFieldTypes = func() map[FieldType]bool {
	m := make(map[FieldType]bool, len(FieldTypes))
	for _, t := range FieldTypes {
		m[t] = true
	}
	return m
}()

// Valid reports whether t is a supported field type.
func (t FieldType) Valid() bool { return validFieldTypes[t] }

// IsList reports whether t is a list.<T> type.
func (t FieldType) IsList() bool { return strings.HasPrefix(string(t), listPrefix) }

// Elem returns the scalar type of a list type, or t itself.
func (t FieldType) Elem() FieldType { return FieldType(strings.TrimPrefix(string(t), listPrefix)) }

// IsDate reports whether values of t (or its elements) are dates or
// date-times. Min and max rules on such fields are time bounds.
func (t FieldType) IsDate() bool {
	e := t.Elem()
	return e == FieldTypeDate || e == FieldTypeDateTime
}

// String values of the FieldTypes, used as choices when validating input.
func fieldTypeChoices() []string {
	out := make([]string, len(FieldTypes))
	for i, t := range FieldTypes {
		out[i] = string(t)
	}
	return out
}

// RuleCode identifies a validation rule on a field.
type RuleCode string

// Supported rule codes.
const (
	RuleRequired         RuleCode = "required"
	RuleUnique           RuleCode = "unique"
	RuleChoices          RuleCode = "choices"
	RuleMax              RuleCode = "max"
	RuleMin              RuleCode = "min"
	RuleRegex            RuleCode = "regex"
	RuleMaxPrecision     RuleCode = "max_precision"
	RuleFieldReference   RuleCode = "field_reference"
	RuleContentReference RuleCode = "content_reference"
	RuleTransliteration  RuleCode = "transliteration"
)

var ruleCodes = []string{
	string(RuleRequired), string(RuleUnique), string(RuleChoices), string(RuleMax),
	string(RuleMin), string(RuleRegex), string(RuleMaxPrecision),
	string(RuleFieldReference), string(RuleContentReference), string(RuleTransliteration),
}

// Valid reports whether c is a supported rule code.
func (c RuleCode) Valid() bool { return slices.Contains(ruleCodes, string(c)) }

// ValueType describes how a rule or param value is edited and stored.
type ValueType string

// Supported value types.
const (
	ValueTypeCheckbox ValueType = "checkbox"
	ValueTypeText     ValueType = "text"
	ValueTypeNumber   ValueType = "number"
	ValueTypeDateTime ValueType = "date_time"
	ValueTypeDate     ValueType = "date"
	ValueTypeListText ValueType = "list.text"
)

var valueTypes = []string{
	string(ValueTypeCheckbox), string(ValueTypeText), string(ValueTypeNumber),
	string(ValueTypeDateTime), string(ValueTypeDate), string(ValueTypeListText),
}

// ParamCode identifies a field parameter. Params configure entry fields
// that point at other content.
type ParamCode string

// Supported param codes.
const (
	ParamContentID     ParamCode = "content_id"
	ParamEntryFieldKey ParamCode = "entry_field_key"
)

var paramCodes = []string{string(ParamContentID), string(ParamEntryFieldKey)}

var paramTypes = []string{string(ValueTypeText), string(ValueTypeListText)}
