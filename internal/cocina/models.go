// Package cocina maps repository objects to the Cocina external model.
package cocina

// Object is one of *DRO, *Collection or *AdminPolicy.
type Object interface {
	ExternalID() string
	CocinaType() string
	sealed()
}

// DRO is a digital repository object: an item with optional structure and access.
type DRO struct {
	ExternalIdentifier string         `json:"externalIdentifier"`
	Type               string         `json:"type"`
	Label              string         `json:"label"`
	Version            int            `json:"version"`
	Administrative     Administrative `json:"administrative"`
	Description        Description    `json:"description"`
	Access             *Access        `json:"access,omitempty"`
	Structural         *Structural    `json:"structural,omitempty"`
}

type Collection struct {
	ExternalIdentifier string         `json:"externalIdentifier"`
	Type               string         `json:"type"`
	Label              string         `json:"label"`
	Version            int            `json:"version"`
	Administrative     Administrative `json:"administrative"`
	Description        Description    `json:"description"`
}

type AdminPolicy struct {
	ExternalIdentifier string                    `json:"externalIdentifier"`
	Type               string                    `json:"type"`
	Label              string                    `json:"label"`
	Version            int                       `json:"version"`
	Administrative     AdminPolicyAdministrative `json:"administrative"`
	Description        Description               `json:"description"`
}

func (d *DRO) ExternalID() string         { return d.ExternalIdentifier }
func (c *Collection) ExternalID() string  { return c.ExternalIdentifier }
func (a *AdminPolicy) ExternalID() string { return a.ExternalIdentifier }

func (d *DRO) CocinaType() string         { return d.Type }
func (c *Collection) CocinaType() string  { return c.Type }
func (a *AdminPolicy) CocinaType() string { return a.Type }

func (*DRO) sealed()         {}
func (*Collection) sealed()  {}
func (*AdminPolicy) sealed() {}

// Administrative is the administrative block of DROs and collections.
// HasAdminPolicy renders as null when the object has no governing policy.
type Administrative struct {
	ReleaseTags    []ReleaseTag `json:"releaseTags"`
	HasAdminPolicy *string      `json:"hasAdminPolicy"`
}

type AdminPolicyAdministrative struct {
	DefaultObjectRights  string  `json:"default_object_rights,omitempty"`
	RegistrationWorkflow *string `json:"registration_workflow"`
	HasAdminPolicy       *string `json:"hasAdminPolicy"`
}

type ReleaseTag struct {
	To      string `json:"to"`
	What    string `json:"what"`
	Date    string `json:"date"`
	Who     string `json:"who"`
	Release bool   `json:"release"`
}

type Description struct {
	Title []Title `json:"title"`
}

type Title struct {
	Primary   bool   `json:"primary"`
	TitleFull string `json:"titleFull"`
}

type Access struct {
	EmbargoReleaseDate string `json:"embargoReleaseDate"`
}

type Structural struct {
	Contains []FileSet `json:"contains"`
}

type FileSet struct {
	ExternalIdentifier string            `json:"externalIdentifier"`
	Type               string            `json:"type"`
	Label              string            `json:"label"`
	Version            int               `json:"version"`
	Structural         FileSetStructural `json:"structural"`
}

type FileSetStructural struct {
	Contains []File `json:"contains,omitempty"`
}

type File struct {
	ExternalIdentifier string `json:"externalIdentifier"`
	Type               string `json:"type"`
	Label              string `json:"label"`
	Version            int    `json:"version"`
}
