// Package repository models the objects held by the digital object registry
// and the store port services read them through.
package repository

import (
	"context"
	"strings"
	"time"

	"dor/internal/releasetags"
)

// Kind tags an object variant.
type Kind string

const (
	KindItem        Kind = "item"
	KindEtd         Kind = "etd"
	KindCollection  Kind = "collection"
	KindAdminPolicy Kind = "admin_policy"
	KindAgreement   Kind = "agreement"
)

// Object is a stored repository object. The set of variants is closed:
// only types embedding Base satisfy it.
type Object interface {
	Kind() Kind
	Core() *Base
	sealed()
}

// Base carries the attributes every object has.
type Base struct {
	ID                 string            `json:"id"`
	Label              string            `json:"label"`
	Version            int               `json:"version"`
	AdminPolicyID      string            `json:"admin_policy_id,omitempty"`
	FullTitle          string            `json:"full_title,omitempty"`
	CollectionIDs      []string          `json:"collection_ids,omitempty"`
	ReleaseTags        []releasetags.Tag `json:"release_tags,omitempty"`
	AdministrativeTags []string          `json:"administrative_tags,omitempty"`
	Catkey             string            `json:"catkey,omitempty"`
	SourceID           string            `json:"source_id,omitempty"`
	DescMetadata       string            `json:"desc_metadata,omitempty"`
	UpdatedAt          time.Time         `json:"updated_at,omitzero"`
	// Revision counts successful writes. Stores set it; callers only carry
	// the value they read back into Save.
	Revision int64 `json:"revision,omitempty"`
}

func (b *Base) Core() *Base { return b }

func (b *Base) sealed() {}

// Item is a deposited work.
type Item struct {
	Base
	// ContentType is an explicit content classification, consulted when no
	// "Process : Content Type" administrative tag is present.
	ContentType        string           `json:"content_type,omitempty"`
	Content            *ContentMetadata `json:"content,omitempty"`
	EmbargoReleaseDate *time.Time       `json:"embargo_release_date,omitempty"`
}

func (*Item) Kind() Kind { return KindItem }

const contentTypeTagPrefix = "Process : Content Type"

// ContentTypeTag returns the normalized content type label: the last segment
// of the single "Process : Content Type : X" administrative tag, else the
// explicit content type, else the content metadata type.
func (i *Item) ContentTypeTag() string {
	var matches []string
	for _, tag := range i.AdministrativeTags {
		if strings.Contains(tag, contentTypeTagPrefix) {
			matches = append(matches, tag)
		}
	}
	if len(matches) == 1 {
		parts := strings.Split(matches[0], ":")
		return strings.TrimSpace(parts[len(parts)-1])
	}
	if i.ContentType != "" {
		return i.ContentType
	}
	if i.Content != nil {
		return i.Content.Type
	}
	return ""
}

// Etd is a legacy electronic thesis. Its title comes from its properties.
type Etd struct {
	Item
	PropertyTitles []string `json:"property_titles,omitempty"`
}

func (*Etd) Kind() Kind { return KindEtd }

type Collection struct {
	Base
}

func (*Collection) Kind() Kind { return KindCollection }

// AdminPolicy governs the objects that reference it.
type AdminPolicy struct {
	Base
	DefaultObjectRights  string `json:"default_object_rights,omitempty"`
	RegistrationWorkflow string `json:"registration_workflow,omitempty"`
}

func (*AdminPolicy) Kind() Kind { return KindAdminPolicy }

// Agreement is stored but has no external representation.
type Agreement struct {
	Base
}

func (*Agreement) Kind() Kind { return KindAgreement }

// Store is the port services use to read and write objects.
// Missing identifiers yield sentinel.ErrNotFound.
//
// Save is a compare-and-swap on Revision: a zero Revision writes a new object
// and fails if the identifier is taken; otherwise the stored revision must
// equal obj's. Either failure wraps sentinel.ErrConflict. A source ID
// already held by another object fails with *DuplicateSourceIDError. On
// success obj carries its new Revision.
type Store interface {
	Find(ctx context.Context, id string) (Object, error)
	Save(ctx context.Context, obj Object) error
}
