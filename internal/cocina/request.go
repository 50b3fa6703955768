package cocina

import "time"

// Request asks for a new object to be registered. It is a Cocina object
// without an identifier; the registry mints one.
type Request struct {
	Type           string                `json:"type"`
	Label          string                `json:"label"`
	Version        int                   `json:"version"`
	Administrative RequestAdministrative `json:"administrative"`
	Identification Identification        `json:"identification"`
	Description    *Description          `json:"description,omitempty"`
	Access         *RequestAccess        `json:"access,omitempty"`
	Structural     *RequestStructural    `json:"structural,omitempty"`
}

type RequestAdministrative struct {
	HasAdminPolicy       string `json:"hasAdminPolicy"`
	DefaultObjectRights  string `json:"default_object_rights,omitempty"`
	RegistrationWorkflow string `json:"registration_workflow,omitempty"`
}

type Identification struct {
	SourceID     string        `json:"sourceId,omitempty"`
	CatalogLinks []CatalogLink `json:"catalogLinks,omitempty"`
}

type CatalogLink struct {
	Catalog         string `json:"catalog"`
	CatalogRecordID string `json:"catalogRecordId"`
}

type RequestAccess struct {
	EmbargoReleaseDate *time.Time `json:"embargoReleaseDate,omitempty"`
}

// RequestStructural carries an optional contentMetadata XML document for
// items.
type RequestStructural struct {
	ViewingDirection string   `json:"viewingDirection,omitempty"`
	IsMemberOf       []string `json:"isMemberOf,omitempty"`
	ContentMetadata  string   `json:"contentMetadata,omitempty"`
}

// Catkey returns the Symphony record linked from the request, if any.
func (r *Request) Catkey() string {
	for _, link := range r.Identification.CatalogLinks {
		if link.Catalog == "symphony" {
			return link.CatalogRecordID
		}
	}
	return ""
}

// Title returns the first title in the description.
func (r *Request) Title() string {
	if r.Description == nil || len(r.Description.Title) == 0 {
		return ""
	}
	return r.Description.Title[0].TitleFull
}

// IsDRO reports whether the type is one of the item vocabularies.
func IsDRO(t string) bool {
	switch t {
	case VocabObject, VocabImage, VocabThreeDimensional, VocabMap, VocabMedia, VocabManuscript, VocabBook:
		return true
	}
	return false
}

// ContentTypeTag is the administrative tag recording an item's content type.
// Books carry their reading direction.
func ContentTypeTag(t, viewingDirection string) string {
	var label string
	switch t {
	case VocabImage:
		label = "Image"
	case VocabThreeDimensional:
		label = "3D"
	case VocabMap:
		label = "Map"
	case VocabMedia:
		label = "Media"
	case VocabManuscript:
		label = "Manuscript"
	case VocabBook:
		dir := "ltr"
		if viewingDirection == "right-to-left" {
			dir = "rtl"
		}
		label = "Book (" + dir + ")"
	default:
		label = VocabObject
	}
	return "Process : Content Type : " + label
}
