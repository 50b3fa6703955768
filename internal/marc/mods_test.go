package marc

import (
	"context"
	"encoding/xml"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dor/internal/catalog"
)

// modsView is the subset of MODS the assertions look at.
type modsView struct {
	XMLName   xml.Name `xml:"mods"`
	Version   string   `xml:"version,attr"`
	TitleInfo []struct {
		Type     string `xml:"type,attr"`
		NonSort  string `xml:"nonSort"`
		Title    string `xml:"title"`
		SubTitle string `xml:"subTitle"`
	} `xml:"titleInfo"`
	Names []struct {
		Type      string `xml:"type,attr"`
		Usage     string `xml:"usage,attr"`
		NameParts []struct {
			Type string `xml:"type,attr"`
			Text string `xml:",chardata"`
		} `xml:"namePart"`
	} `xml:"name"`
	TypeOfResource struct {
		Manuscript string `xml:"manuscript,attr"`
		Text       string `xml:",chardata"`
	} `xml:"typeOfResource"`
	OriginInfo struct {
		Publishers []string `xml:"publisher"`
		DateIssued []struct {
			Encoding string `xml:"encoding,attr"`
			Text     string `xml:",chardata"`
		} `xml:"dateIssued"`
		Issuance string `xml:"issuance"`
	} `xml:"originInfo"`
	Language struct {
		Term string `xml:"languageTerm"`
	} `xml:"language"`
	Extent   []string `xml:"physicalDescription>extent"`
	Notes    []string `xml:"note"`
	Subjects []struct {
		Authority  string   `xml:"authority,attr"`
		Topics     []string `xml:"topic"`
		Geographic []string `xml:"geographic"`
	} `xml:"subject"`
	Identifiers []struct {
		Type string `xml:"type,attr"`
		Text string `xml:",chardata"`
	} `xml:"identifier"`
	RecordIdentifier struct {
		Source string `xml:"source,attr"`
		Text   string `xml:",chardata"`
	} `xml:"recordInfo>recordIdentifier"`
}

func fullBib() *catalog.Bib {
	return &catalog.Bib{
		Leader: strPtr("01234cam a2200301 a 4500"),
		Fields: []catalog.RawField{
			control("008", "041202s2000    cau           000 0 eng d"),
			data("020", "  ", "a", "0123456789"),
			data("100", "1 ", "a", "Doe, Jane,", "d", "1950-", "e", "author."),
			data("245", "14", "a", "The history of maps :", "b", "a survey /", "c", "Jane Doe."),
			data("260", "  ", "a", "Stanford, Calif. :", "b", "Stanford University Press,", "c", "2000."),
			data("300", "  ", "a", "xii, 300 p. :", "b", "ill. ;", "c", "24 cm."),
			data("500", "  ", "a", "Includes index."),
			data("650", " 0", "a", "Cartography", "x", "History."),
			data("651", " 0", "a", "California", "v", "Maps."),
			data("700", "1 ", "a", "Roe, Richard."),
		},
	}
}

func transformFull(t *testing.T) modsView {
	t.Helper()
	rec, err := NewValidated("111", fullBib())
	require.NoError(t, err)

	out, err := ToMODS(context.Background(), NewModsTransformer(), rec)
	require.NoError(t, err)

	var view modsView
	require.NoError(t, xml.Unmarshal(out, &view))
	return view
}

func TestModsTransformer(t *testing.T) {
	view := transformFull(t)

	assert.Equal(t, "3.6", view.Version)

	t.Run("title with non-sort characters", func(t *testing.T) {
		require.Len(t, view.TitleInfo, 1)
		assert.Equal(t, "The ", view.TitleInfo[0].NonSort)
		assert.Equal(t, "history of maps", view.TitleInfo[0].Title)
		assert.Equal(t, "a survey", view.TitleInfo[0].SubTitle)
	})

	t.Run("names", func(t *testing.T) {
		require.Len(t, view.Names, 2)
		assert.Equal(t, "personal", view.Names[0].Type)
		assert.Equal(t, "primary", view.Names[0].Usage)
		assert.Equal(t, "Doe, Jane", view.Names[0].NameParts[0].Text)
		assert.Equal(t, "date", view.Names[0].NameParts[1].Type)
		assert.Equal(t, "1950-", view.Names[0].NameParts[1].Text)
		assert.Empty(t, view.Names[1].Usage)
	})

	t.Run("type of resource and origin", func(t *testing.T) {
		assert.Equal(t, "text", view.TypeOfResource.Text)
		assert.Empty(t, view.TypeOfResource.Manuscript)
		assert.Equal(t, []string{"Stanford University Press"}, view.OriginInfo.Publishers)
		require.Len(t, view.OriginInfo.DateIssued, 2)
		assert.Equal(t, "2000", view.OriginInfo.DateIssued[0].Text)
		assert.Equal(t, "marc", view.OriginInfo.DateIssued[1].Encoding)
		assert.Equal(t, "monographic", view.OriginInfo.Issuance)
	})

	t.Run("language, extent and notes", func(t *testing.T) {
		assert.Equal(t, "eng", view.Language.Term)
		assert.Equal(t, []string{"xii, 300 p. : ill. ; 24 cm."}, view.Extent)
		assert.Equal(t, []string{"Includes index."}, view.Notes)
	})

	t.Run("subjects", func(t *testing.T) {
		require.Len(t, view.Subjects, 2)
		assert.Equal(t, "lcsh", view.Subjects[0].Authority)
		assert.Equal(t, []string{"Cartography", "History"}, view.Subjects[0].Topics)
		assert.Equal(t, []string{"California"}, view.Subjects[1].Geographic)
	})

	t.Run("identifiers and record info", func(t *testing.T) {
		require.Len(t, view.Identifiers, 1)
		assert.Equal(t, "isbn", view.Identifiers[0].Type)
		assert.Equal(t, "SIRSI", view.RecordIdentifier.Source)
		assert.Equal(t, "a111", view.RecordIdentifier.Text)
	})
}

func TestModsTransformer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewModsTransformer().Transform(ctx, []byte(`<record/>`))
	assert.ErrorIs(t, err, context.Canceled)
}

type transformerFunc func(context.Context, []byte) ([]byte, error)

func (f transformerFunc) Transform(ctx context.Context, in []byte) ([]byte, error) {
	return f(ctx, in)
}

func TestToMODS_RejectsBadOutput(t *testing.T) {
	rec, err := NewValidated("111", validBib())
	require.NoError(t, err)

	tests := []struct {
		name string
		t    Transformer
		want string
	}{
		{"engine error", transformerFunc(func(context.Context, []byte) ([]byte, error) {
			return nil, errors.New("stylesheet exploded")
		}), "stylesheet exploded"},
		{"malformed", transformerFunc(func(context.Context, []byte) ([]byte, error) {
			return []byte(`<mods><titleInfo>`), nil
		}), "malformed"},
		{"wrong root", transformerFunc(func(context.Context, []byte) ([]byte, error) {
			return []byte(`<dc/>`), nil
		}), "unexpected root"},
		{"empty", transformerFunc(func(context.Context, []byte) ([]byte, error) {
			return nil, nil
		}), "empty output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToMODS(context.Background(), tt.t, rec)
			var terr *TransformError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, "111", terr.Catkey)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
