package marc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dor/internal/catalog"
)

func TestNewValidated(t *testing.T) {
	const prefix = "MARC record catkey from Symphony should have exactly one populated"

	tests := []struct {
		name      string
		mutate    func(*catalog.Bib)
		invariant Invariant
	}{
		{
			name:      "missing leader",
			mutate:    func(b *catalog.Bib) { b.Leader = nil },
			invariant: InvariantLeader,
		},
		{
			name:      "blank leader",
			mutate:    func(b *catalog.Bib) { b.Leader = strPtr("   ") },
			invariant: InvariantLeader,
		},
		{
			name:      "missing 008",
			mutate:    func(b *catalog.Bib) { b.Fields = b.Fields[1:] },
			invariant: Invariant008,
		},
		{
			name: "two 008s",
			mutate: func(b *catalog.Bib) {
				b.Fields = append(b.Fields, control("008", "different"))
			},
			invariant: Invariant008,
		},
		{
			name:      "blank 008",
			mutate:    func(b *catalog.Bib) { b.Fields[0] = control("008", " ") },
			invariant: Invariant008,
		},
		{
			name:      "missing 245",
			mutate:    func(b *catalog.Bib) { b.Fields = b.Fields[:1] },
			invariant: Invariant245,
		},
		{
			name: "two 245s",
			mutate: func(b *catalog.Bib) {
				b.Fields = append(b.Fields, data("245", "00", "a", "other"))
			},
			invariant: Invariant245,
		},
		{
			name:      "245 without subfield a",
			mutate:    func(b *catalog.Bib) { b.Fields[1] = data("245", "41", "b", "the title") },
			invariant: Invariant245a,
		},
		{
			name:      "empty 245 subfield a",
			mutate:    func(b *catalog.Bib) { b.Fields[1] = data("245", "41", "a", "") },
			invariant: Invariant245a,
		},
		{
			name:      "two 245 subfield a",
			mutate:    func(b *catalog.Bib) { b.Fields[1] = data("245", "41", "a", "one", "a", "two") },
			invariant: Invariant245a,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bib := validBib()
			tt.mutate(bib)

			rec, err := NewValidated("catkey", bib)
			require.Error(t, err)
			assert.Nil(t, rec)

			var invalid *InvalidMarcError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.invariant, invalid.Invariant)
			assert.Equal(t, "catkey", invalid.Catkey)
			assert.Equal(t, prefix+" "+string(tt.invariant), err.Error())
		})
	}
}

func TestNewValidated_FirstFailureWins(t *testing.T) {
	bib := &catalog.Bib{}

	_, err := NewValidated("111", bib)
	var invalid *InvalidMarcError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, InvariantLeader, invalid.Invariant)

	bib.Leader = strPtr("00956cem 2200229Ma 4500")
	_, err = NewValidated("111", bib)
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, Invariant008, invalid.Invariant)

	bib.Fields = []catalog.RawField{control("008", "041202s2000")}
	_, err = NewValidated("111", bib)
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, Invariant245, invalid.Invariant)
}

func TestNewValidated_Valid(t *testing.T) {
	rec, err := NewValidated("111", validBib())
	require.NoError(t, err)

	assert.Equal(t, "111", rec.Catkey())
	assert.Equal(t, "the title", rec.Title())

	// copies must not leak into the validated record
	copied := rec.Record()
	copied.Fields[1].Subfields[0].Value = ""
	assert.Equal(t, "the title", rec.Title())
}
