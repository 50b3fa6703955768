// Package releasetags resolves whether an object is released to each
// downstream destination, combining its own tags with those inherited from
// the collections it belongs to.
package releasetags

import (
	"fmt"
	"strings"
	"time"

	dErrors "dor/pkg/domain-errors"
)

const (
	WhatSelf       = "self"
	WhatCollection = "collection"
)

// Tag is an immutable release fact attached to an object or collection.
// What scopes the tag: "self" applies to the tagged object only, "collection"
// applies to members of the tagged collection, empty is global. AdminTag, when
// set, limits a collection tag to members carrying that administrative tag.
type Tag struct {
	To       string    `json:"to"`
	What     string    `json:"what"`
	When     time.Time `json:"when"`
	Who      string    `json:"who"`
	Release  bool      `json:"release"`
	AdminTag string    `json:"tag,omitempty"`
}

// Equal is full structural equality.
func (t Tag) Equal(o Tag) bool {
	return t.To == o.To &&
		t.What == o.What &&
		t.When.Equal(o.When) &&
		t.Who == o.Who &&
		t.Release == o.Release &&
		t.AdminTag == o.AdminTag
}

func (t Tag) scope() string {
	return strings.ToLower(strings.TrimSpace(t.What))
}

// IsSelf reports whether the tag only concerns the object it is attached to.
func (t Tag) IsSelf() bool { return t.scope() == WhatSelf }

// IsGlobal reports whether the tag has no explicit target.
func (t Tag) IsGlobal() bool { return t.scope() == "" }

// appliesTo reports whether an inherited tag applies to an object carrying
// the given administrative tags.
func (t Tag) appliesTo(adminTags []string) bool {
	if t.IsGlobal() || t.AdminTag == "" {
		return true
	}
	for _, at := range adminTags {
		if at == t.AdminTag {
			return true
		}
	}
	return false
}

// Input is a release tag as posted by a client. Release is left untyped so a
// non-boolean value can be reported back.
type Input struct {
	To       string `json:"to"`
	What     string `json:"what"`
	Who      string `json:"who"`
	When     string `json:"when"`
	Release  any    `json:"release"`
	AdminTag string `json:"tag"`
}

// NewTag validates a posted tag. A missing When is stamped with now.
func NewTag(in Input, now time.Time) (Tag, error) {
	release, ok := in.Release.(bool)
	if !ok {
		sent := ""
		if in.Release != nil {
			sent = fmt.Sprint(in.Release)
		}
		return Tag{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf(
			"A release attribute is required in the JSON, and its value must be either 'true' or 'false'. You sent '%s'", sent))
	}
	to := strings.TrimSpace(in.To)
	if to == "" {
		return Tag{}, dErrors.New(dErrors.CodeInvalidInput, "release tag requires a 'to' destination")
	}
	what := strings.ToLower(strings.TrimSpace(in.What))
	if what != WhatSelf && what != WhatCollection {
		return Tag{}, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("release tag 'what' must be 'self' or 'collection', got '%s'", in.What))
	}

	when := now.UTC()
	if strings.TrimSpace(in.When) != "" {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(in.When))
		if err != nil {
			return Tag{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "release tag 'when' must be an RFC 3339 timestamp")
		}
		when = parsed.UTC()
	}

	return Tag{
		To:       to,
		What:     what,
		When:     when,
		Who:      strings.TrimSpace(in.Who),
		Release:  release,
		AdminTag: strings.TrimSpace(in.AdminTag),
	}, nil
}
