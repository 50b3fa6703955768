package marc

import (
	"fmt"
	"strings"

	"dor/internal/catalog"
)

// Invariant names a structural requirement on a record.
type Invariant string

const (
	InvariantLeader Invariant = "leader"
	Invariant008    Invariant = "008"
	Invariant245    Invariant = "245"
	Invariant245a   Invariant = "245 subfield a"
)

// InvalidMarcError names the first invariant a record violates.
type InvalidMarcError struct {
	Catkey    string
	Invariant Invariant
}

func (e *InvalidMarcError) Error() string {
	return fmt.Sprintf("MARC record %s from Symphony should have exactly one populated %s", e.Catkey, e.Invariant)
}

// Validate checks, in order: a non-blank leader, exactly one non-blank 008,
// exactly one 245, and exactly one non-blank 245 $a. Only the first failure
// is reported.
func Validate(catkey string, rec *Record) error {
	fail := func(inv Invariant) error {
		return &InvalidMarcError{Catkey: catkey, Invariant: inv}
	}

	if isBlank(rec.Leader) {
		return fail(InvariantLeader)
	}

	cf008s := rec.FieldsByTag("008")
	if len(cf008s) != 1 || isBlank(cf008s[0].Value) {
		return fail(Invariant008)
	}

	df245s := rec.FieldsByTag("245")
	if len(df245s) != 1 {
		return fail(Invariant245)
	}

	subAs := df245s[0].SubfieldValues("a")
	if len(subAs) != 1 || isBlank(subAs[0]) {
		return fail(Invariant245a)
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidatedRecord is a Record that passed Validate. It can only be obtained
// through NewValidated.
type ValidatedRecord struct {
	catkey string
	record *Record
}

// NewValidated builds and validates in one step. It never returns a partial
// record.
func NewValidated(catkey string, bib *catalog.Bib) (*ValidatedRecord, error) {
	rec := Build(catkey, bib)
	if err := Validate(catkey, rec); err != nil {
		return nil, err
	}
	return &ValidatedRecord{catkey: catkey, record: rec}, nil
}

func (v *ValidatedRecord) Catkey() string {
	return v.catkey
}

// Record returns a copy of the fields so callers cannot break the invariants.
func (v *ValidatedRecord) Record() *Record {
	out := &Record{Leader: v.record.Leader, Fields: make([]Field, len(v.record.Fields))}
	for i, f := range v.record.Fields {
		f.Subfields = append([]Subfield(nil), f.Subfields...)
		out.Fields[i] = f
	}
	return out
}

// Title returns the 245 $a.
func (v *ValidatedRecord) Title() string {
	return v.record.FieldsByTag("245")[0].First("a")
}

func (v *ValidatedRecord) MarshalMARCXML() ([]byte, error) {
	return v.record.MarshalMARCXML()
}
