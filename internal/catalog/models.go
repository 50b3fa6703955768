package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Response is the Symphony JSON wrapper around a bib record.
type Response struct {
	Resource string `json:"resource"`
	Key      string `json:"key"`
	Fields   struct {
		Bib *Bib `json:"bib"`
	} `json:"fields"`
}

// Bib is the raw MARC payload. Leader is a pointer so an absent leader can be
// told apart from an empty one.
type Bib struct {
	Standard string     `json:"standard,omitempty"`
	Type     string     `json:"type,omitempty"`
	Leader   *string    `json:"leader,omitempty"`
	Fields   []RawField `json:"fields"`
}

// RawField is one field as Symphony sends it. Control fields carry their value
// as the data of a single subfield coded "_".
type RawField struct {
	Tag       string        `json:"tag"`
	Inds      Indicators    `json:"inds,omitempty"`
	Subfields []RawSubfield `json:"subfields"`
}

type RawSubfield struct {
	Code string `json:"code"`
	Data string `json:"data"`
}

// Equal is full structural equality: tag, indicators and every subfield in
// order.
func (f RawField) Equal(other RawField) bool {
	if f.Tag != other.Tag || f.Inds != other.Inds || len(f.Subfields) != len(other.Subfields) {
		return false
	}
	for i := range f.Subfields {
		if f.Subfields[i] != other.Subfields[i] {
			return false
		}
	}
	return true
}

// Indicators holds the two MARC indicator characters. Symphony sends them as
// a two character string ("41"); a two element array is accepted as well.
type Indicators [2]string

func (in *Indicators) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*in = Indicators{}
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var parts []*string
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("indicators: %w", err)
		}
		if len(parts) > 2 {
			return fmt.Errorf("indicators: expected at most 2 values, got %d", len(parts))
		}
		var out Indicators
		for i, p := range parts {
			if p != nil {
				out[i] = *p
			}
		}
		*in = out
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	var out Indicators
	for i, r := range []rune(s) {
		if i > 1 {
			return fmt.Errorf("indicators: expected at most 2 characters, got %q", s)
		}
		out[i] = string(r)
	}
	*in = out
	return nil
}

func (in Indicators) MarshalJSON() ([]byte, error) {
	return json.Marshal(in.First() + in.Second())
}

// First returns indicator 1, blank when unset.
func (in Indicators) First() string {
	return blankIfEmpty(in[0])
}

// Second returns indicator 2, blank when unset.
func (in Indicators) Second() string {
	return blankIfEmpty(in[1])
}

func blankIfEmpty(s string) string {
	if s == "" {
		return " "
	}
	return s
}

// BarcodeResponse is the answer of the barcode search service.
type BarcodeResponse struct {
	ID string `json:"id"`
}
