// Package marc builds MARC records from Symphony payloads, enforces the
// structural invariants DOR relies on, and renders records as MARCXML and
// MODS.
package marc

import (
	"dor/internal/catalog"
)

// OriginatingSystem is written to every record's 003 field.
const OriginatingSystem = "SIRSI"

// CatkeyPrefix is prepended to the catalog key in the synthesized 001 field.
const CatkeyPrefix = "a"

type Subfield struct {
	Code  string
	Value string
}

// Field is either a control field (Value set, no indicators or subfields) or
// a data field.
type Field struct {
	Tag       string
	Ind1      string
	Ind2      string
	Value     string
	Subfields []Subfield
}

// IsControl reports whether the field's tag is a control tag.
func (f Field) IsControl() bool {
	return IsControlTag(f.Tag)
}

// SubfieldValues returns the values of every subfield with code, in order.
func (f Field) SubfieldValues(code string) []string {
	var out []string
	for _, sf := range f.Subfields {
		if sf.Code == code {
			out = append(out, sf.Value)
		}
	}
	return out
}

// First returns the first value of subfield code, or "".
func (f Field) First(code string) string {
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return sf.Value
		}
	}
	return ""
}

// IsControlTag reports whether tag is 001 through 009.
func IsControlTag(tag string) bool {
	return len(tag) == 3 && tag[0] == '0' && tag[1] == '0' && tag[2] >= '1' && tag[2] <= '9'
}

type Record struct {
	Leader string
	Fields []Field
}

// FieldsByTag returns every field with tag, in record order.
func (r *Record) FieldsByTag(tag string) []Field {
	var out []Field
	for _, f := range r.Fields {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// ControlValue returns the value of the first field with tag, or "".
func (r *Record) ControlValue(tag string) string {
	for _, f := range r.Fields {
		if f.Tag == tag {
			return f.Value
		}
	}
	return ""
}

// Build converts a Symphony bib payload into a Record. Exact duplicate fields
// collapse to their first occurrence, every 001 and 003 from the payload is
// dropped, and a synthesized 001 ("a" + catkey) and 003 ("SIRSI") are
// appended. Build does not validate; see Validate and NewValidated.
func Build(catkey string, bib *catalog.Bib) *Record {
	rec := &Record{}
	if bib == nil {
		bib = &catalog.Bib{}
	}
	if bib.Leader != nil {
		rec.Leader = *bib.Leader
	}

	for _, raw := range uniqueFields(bib.Fields) {
		if raw.Tag == "001" || raw.Tag == "003" {
			continue
		}
		rec.Fields = append(rec.Fields, convertField(raw))
	}

	rec.Fields = append(rec.Fields,
		Field{Tag: "001", Value: CatkeyPrefix + catkey},
		Field{Tag: "003", Value: OriginatingSystem},
	)
	return rec
}

func uniqueFields(fields []catalog.RawField) []catalog.RawField {
	out := make([]catalog.RawField, 0, len(fields))
	for _, f := range fields {
		seen := false
		for _, kept := range out {
			if kept.Equal(f) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, f)
		}
	}
	return out
}

func convertField(raw catalog.RawField) Field {
	if IsControlTag(raw.Tag) {
		f := Field{Tag: raw.Tag}
		if len(raw.Subfields) > 0 {
			f.Value = raw.Subfields[0].Data
		}
		return f
	}
	f := Field{
		Tag:       raw.Tag,
		Ind1:      raw.Inds.First(),
		Ind2:      raw.Inds.Second(),
		Subfields: make([]Subfield, 0, len(raw.Subfields)),
	}
	for _, sf := range raw.Subfields {
		f.Subfields = append(f.Subfields, Subfield{Code: sf.Code, Value: sf.Data})
	}
	return f
}
