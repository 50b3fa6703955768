package repository

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ContentMetadata is the structural listing of an item: resources in
// document order, each with its directly contained files.
type ContentMetadata struct {
	Type      string     `json:"type,omitempty"`
	Resources []Resource `json:"resources,omitempty"`
}

type Resource struct {
	ID    string `json:"id"`
	Type  string `json:"type,omitempty"`
	Label string `json:"label,omitempty"`
	Files []File `json:"files,omitempty"`
}

type File struct {
	ID string `json:"id"`
}

// ParseContentMetadata reads a <contentMetadata> document. Every <resource>
// element is collected in document order, including nested ones; a
// resource's files are its direct <file> children.
func ParseContentMetadata(data []byte) (*ContentMetadata, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	cm := &ContentMetadata{}

	var (
		stack     []string
		resources []int
		sawRoot   bool
		label     *strings.Builder
	)
	current := func() *Resource {
		if len(resources) == 0 {
			return nil
		}
		return &cm.Resources[resources[len(resources)-1]]
	}
	parent := func() string {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1]
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse content metadata: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			switch {
			case !sawRoot:
				if name != "contentMetadata" {
					return nil, fmt.Errorf("parse content metadata: unexpected root element <%s>", name)
				}
				sawRoot = true
				cm.Type = attr(t, "type")
			case name == "resource":
				cm.Resources = append(cm.Resources, Resource{ID: attr(t, "id"), Type: attr(t, "type")})
				resources = append(resources, len(cm.Resources)-1)
			case name == "file" && parent() == "resource":
				if r := current(); r != nil {
					r.Files = append(r.Files, File{ID: attr(t, "id")})
				}
			case name == "label" && parent() == "resource":
				label = &strings.Builder{}
			}
			stack = append(stack, name)
		case xml.CharData:
			if label != nil {
				label.Write(t)
			}
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			switch t.Name.Local {
			case "label":
				if label != nil {
					if r := current(); r != nil {
						r.Label += label.String()
					}
					label = nil
				}
			case "resource":
				resources = resources[:len(resources)-1]
			}
		}
	}
	if !sawRoot {
		return nil, errors.New("parse content metadata: empty document")
	}
	return cm, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
