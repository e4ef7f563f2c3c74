// Package model holds the stored records shared by the entry, section and
// translation packages.
package model

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Doc is a schema-shaped document: field key to value.
type Doc = map[string]any

// Errors reported when a request lacks its owner keys.
var (
	ErrMissingTenant = errors.New("userId & projectId required")
	ErrMissingScope  = errors.New("userId & projectId & contentId required")
)

var structs = validator.New()

// Tenant identifies the owner scope of a request. Both keys are validated
// upstream and treated as opaque.
type Tenant struct {
	UserID    string `json:"userId" validate:"required"`
	ProjectID string `json:"projectId" validate:"required"`
}

// Validate reports ErrMissingTenant when a key is empty.
func (t Tenant) Validate() error {
	if err := structs.Struct(t); err != nil {
		return ErrMissingTenant
	}
	return nil
}

// Scope is a Tenant narrowed to one Content.
type Scope struct {
	UserID    string `json:"userId" validate:"required"`
	ProjectID string `json:"projectId" validate:"required"`
	ContentID string `json:"contentId" validate:"required"`
}

// Validate reports ErrMissingScope when a key is empty.
func (s Scope) Validate() error {
	if err := structs.Struct(s); err != nil {
		return ErrMissingScope
	}
	return nil
}

// Tenant drops the content id.
func (s Scope) Tenant() Tenant {
	return Tenant{UserID: s.UserID, ProjectID: s.ProjectID}
}

// Entry is a document conforming to a Content's entry schema.
type Entry struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	ContentID  string    `json:"contentId"`
	CreatedBy  string    `json:"createdBy"`
	UpdatedBy  string    `json:"updatedBy"`
	SectionIDs []string  `json:"sectionIds"`
	Doc        Doc       `json:"doc"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Section is a node of a Content's section tree. ParentID is nil for roots.
type Section struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	ContentID string    `json:"contentId"`
	CreatedBy string    `json:"createdBy"`
	UpdatedBy string    `json:"updatedBy"`
	ParentID  *string   `json:"parentId"`
	Doc       Doc       `json:"doc"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TranslationSubject is the kind of record a translation belongs to.
type TranslationSubject string

// Supported translation subjects.
const (
	SubjectEntry TranslationSubject = "entry"
	SubjectFile  TranslationSubject = "file"
)

// Translation holds per-locale values of one key of a subject.
type Translation struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId"`
	ProjectID string             `json:"projectId"`
	ContentID string             `json:"contentId"`
	SubjectID string             `json:"subjectId"`
	Subject   TranslationSubject `json:"subject"`
	Key       string             `json:"key"`
	Lang      string             `json:"lang"`
	Value     map[string]any     `json:"value"`
	CreatedAt time.Time          `json:"createdAt"`
}
