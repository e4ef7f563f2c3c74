package schema

import "time"

// Rule is a validation rule attached to a field.
type Rule struct {
	Code  RuleCode  `json:"code" yaml:"code"`
	Type  ValueType `json:"type" yaml:"type"`
	Value any       `json:"value" yaml:"value"`
}

// Param configures how an entry field relates to other content.
type Param struct {
	Code  ParamCode `json:"code" yaml:"code"`
	Type  ValueType `json:"type" yaml:"type"`
	Value any       `json:"value" yaml:"value"`
}

// Field describes one key of an entry or section document.
type Field struct {
	ID          string    `json:"id" yaml:"id,omitempty"`
	Type        FieldType `json:"type" yaml:"type"`
	Name        string    `json:"name" yaml:"name"`
	Key         string    `json:"key" yaml:"key"`
	Description string    `json:"description" yaml:"description,omitempty"`

	// Unit is omitted entirely when the field has none.
	Unit *string `json:"unit,omitempty" yaml:"unit,omitempty"`

	Validations []Rule  `json:"validations" yaml:"validations,omitempty"`
	Params      []Param `json:"params,omitempty" yaml:"params,omitempty"`
	System      bool    `json:"system" yaml:"system,omitempty"`
}

// Rule returns the first rule with the given code.
func (f Field) Rule(code RuleCode) (Rule, bool) {
	for _, r := range f.Validations {
		if r.Code == code {
			return r, true
		}
	}
	return Rule{}, false
}

// EntrySettings holds the entry field schema of a Content.
type EntrySettings struct {
	Fields []Field `json:"fields" yaml:"fields"`
}

// SectionSettings holds the section field schema of a Content.
type SectionSettings struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Fields  []Field `json:"fields" yaml:"fields"`
}

// Alert is a notification shown when a new entry is created.
type Alert struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Message string `json:"message" yaml:"message"`
}

// NewNotifications configures notifications for new entries.
type NewNotifications struct {
	Alert Alert `json:"alert" yaml:"alert"`
}

// Notifications holds the notification settings of a Content.
type Notifications struct {
	New NewNotifications `json:"new" yaml:"new"`
}

// TranslationSettings toggles per-locale translations for a Content.
type TranslationSettings struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Content is a user-defined content type: a named schema for entries and
// sections within a project.
type Content struct {
	ID            string              `json:"id" yaml:"-"`
	UserID        string              `json:"userId" yaml:"-"`
	ProjectID     string              `json:"projectId" yaml:"-"`
	Name          string              `json:"name" yaml:"name"`
	Code          string              `json:"code" yaml:"code"`
	Entries       EntrySettings       `json:"entries" yaml:"entries"`
	Sections      SectionSettings     `json:"sections" yaml:"sections"`
	Notifications Notifications       `json:"notifications" yaml:"notifications"`
	Translations  TranslationSettings `json:"translations" yaml:"translations"`
	CreatedAt     time.Time           `json:"createdAt" yaml:"-"`
	UpdatedAt     time.Time           `json:"updatedAt" yaml:"-"`
}

// FieldSummary is the reduced field description returned next to entry and
// section listings.
type FieldSummary struct {
	Key    string    `json:"key"`
	Name   string    `json:"name"`
	Type   FieldType `json:"type"`
	Params []Param   `json:"params,omitempty"`
}

// Summaries returns the summaries of fields in order.
func Summaries(fields []Field) []FieldSummary {
	out := make([]FieldSummary, len(fields))
	for i, f := range fields {
		out[i] = FieldSummary{Key: f.Key, Name: f.Name, Type: f.Type, Params: f.Params}
	}
	return out
}
