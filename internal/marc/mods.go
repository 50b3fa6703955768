package marc

import (
	"context"
	"encoding/xml"
	"strconv"
	"strings"
	"unicode"
)

const (
	ModsNamespace = "http://www.loc.gov/mods/v3"
	ModsVersion   = "3.6"
	modsSchema    = "http://www.loc.gov/mods/v3 http://www.loc.gov/standards/mods/v3/mods-3-6.xsd"
)

// ModsTransformer maps MARCXML onto a MODS 3.6 subset: titles, names, type of
// resource, origin, language, physical description, notes, subjects,
// identifiers and record info.
type ModsTransformer struct{}

func NewModsTransformer() *ModsTransformer {
	return &ModsTransformer{}
}

func (ModsTransformer) Transform(ctx context.Context, marcxml []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := ParseMARCXML(marcxml)
	if err != nil {
		return nil, err
	}
	doc := buildMods(rec)
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

type modsDocument struct {
	XMLName             xml.Name             `xml:"mods"`
	Xmlns               string               `xml:"xmlns,attr"`
	XmlnsXsi            string               `xml:"xmlns:xsi,attr"`
	Version             string               `xml:"version,attr"`
	SchemaLocation      string               `xml:"xsi:schemaLocation,attr"`
	TitleInfo           []modsTitleInfo      `xml:"titleInfo"`
	Names               []modsName           `xml:"name"`
	TypeOfResource      *modsTypeOfResource  `xml:"typeOfResource,omitempty"`
	OriginInfo          *modsOriginInfo      `xml:"originInfo,omitempty"`
	Language            *modsLanguage        `xml:"language,omitempty"`
	PhysicalDescription *modsPhysDescription `xml:"physicalDescription,omitempty"`
	Abstracts           []string             `xml:"abstract"`
	Notes               []string             `xml:"note"`
	Subjects            []modsSubject        `xml:"subject"`
	Identifiers         []modsIdentifier     `xml:"identifier"`
	RecordInfo          modsRecordInfo       `xml:"recordInfo"`
}

type modsTitleInfo struct {
	Type       string `xml:"type,attr,omitempty"`
	NonSort    string `xml:"nonSort,omitempty"`
	Title      string `xml:"title"`
	SubTitle   string `xml:"subTitle,omitempty"`
	PartNumber string `xml:"partNumber,omitempty"`
	PartName   string `xml:"partName,omitempty"`
}

type modsName struct {
	Type      string         `xml:"type,attr"`
	Usage     string         `xml:"usage,attr,omitempty"`
	NameParts []modsNamePart `xml:"namePart"`
	Roles     []modsRole     `xml:"role"`
}

type modsNamePart struct {
	Type string `xml:"type,attr,omitempty"`
	Text string `xml:",chardata"`
}

type modsRole struct {
	RoleTerm modsTerm `xml:"roleTerm"`
}

type modsTerm struct {
	Authority string `xml:"authority,attr,omitempty"`
	Type      string `xml:"type,attr,omitempty"`
	Text      string `xml:",chardata"`
}

type modsTypeOfResource struct {
	Collection string `xml:"collection,attr,omitempty"`
	Manuscript string `xml:"manuscript,attr,omitempty"`
	Text       string `xml:",chardata"`
}

type modsOriginInfo struct {
	Places     []modsPlace `xml:"place"`
	Publishers []string    `xml:"publisher"`
	DateIssued []modsDate  `xml:"dateIssued"`
	Edition    string      `xml:"edition,omitempty"`
	Issuance   string      `xml:"issuance,omitempty"`
}

type modsPlace struct {
	PlaceTerm modsTerm `xml:"placeTerm"`
}

type modsDate struct {
	Encoding string `xml:"encoding,attr,omitempty"`
	KeyDate  string `xml:"keyDate,attr,omitempty"`
	Text     string `xml:",chardata"`
}

type modsLanguage struct {
	LanguageTerm modsTerm `xml:"languageTerm"`
}

type modsPhysDescription struct {
	Extent []string `xml:"extent"`
}

type modsSubject struct {
	Authority string        `xml:"authority,attr,omitempty"`
	Elements  []modsSubElem `xml:",any"`
}

type modsSubElem struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

type modsIdentifier struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

type modsRecordInfo struct {
	RecordContentSource modsTerm  `xml:"recordContentSource"`
	RecordIdentifier    modsRecID `xml:"recordIdentifier"`
	RecordOrigin        string    `xml:"recordOrigin"`
}

type modsRecID struct {
	Source string `xml:"source,attr,omitempty"`
	Text   string `xml:",chardata"`
}

func buildMods(rec *Record) modsDocument {
	doc := modsDocument{
		Xmlns:          ModsNamespace,
		XmlnsXsi:       "http://www.w3.org/2001/XMLSchema-instance",
		Version:        ModsVersion,
		SchemaLocation: modsSchema,
	}

	for _, f := range rec.FieldsByTag("245") {
		doc.TitleInfo = append(doc.TitleInfo, titleFrom245(f))
	}
	for _, f := range rec.FieldsByTag("246") {
		if t := trimPunct(f.First("a")); t != "" {
			doc.TitleInfo = append(doc.TitleInfo, modsTitleInfo{Type: "alternative", Title: t})
		}
	}

	for _, f := range rec.Fields {
		switch f.Tag {
		case "100", "110", "111":
			doc.Names = append(doc.Names, nameFrom(f, "primary"))
		case "700", "710", "711":
			doc.Names = append(doc.Names, nameFrom(f, ""))
		}
	}

	doc.TypeOfResource = typeOfResource(rec.Leader)
	doc.OriginInfo = originInfo(rec)

	cf008 := rec.ControlValue("008")
	if lang := slice(cf008, 35, 38); strings.TrimSpace(lang) != "" && lang != "|||" {
		doc.Language = &modsLanguage{LanguageTerm: modsTerm{Authority: "iso639-2b", Type: "code", Text: lang}}
	}

	var extents []string
	for _, f := range rec.FieldsByTag("300") {
		if e := joinSubfields(f, "abcefg"); e != "" {
			extents = append(extents, e)
		}
	}
	if len(extents) > 0 {
		doc.PhysicalDescription = &modsPhysDescription{Extent: extents}
	}

	for _, f := range rec.FieldsByTag("520") {
		if a := joinSubfields(f, "ab"); a != "" {
			doc.Abstracts = append(doc.Abstracts, a)
		}
	}
	for _, f := range rec.FieldsByTag("500") {
		if n := f.First("a"); n != "" {
			doc.Notes = append(doc.Notes, n)
		}
	}

	for _, f := range rec.Fields {
		if s, ok := subjectFrom(f); ok {
			doc.Subjects = append(doc.Subjects, s)
		}
	}

	for _, f := range rec.FieldsByTag("020") {
		if v := f.First("a"); v != "" {
			doc.Identifiers = append(doc.Identifiers, modsIdentifier{Type: "isbn", Text: v})
		}
	}
	for _, f := range rec.FieldsByTag("022") {
		if v := f.First("a"); v != "" {
			doc.Identifiers = append(doc.Identifiers, modsIdentifier{Type: "issn", Text: v})
		}
	}

	doc.RecordInfo = modsRecordInfo{
		RecordContentSource: modsTerm{Authority: "marcorg", Text: rec.ControlValue("003")},
		RecordIdentifier:    modsRecID{Source: rec.ControlValue("003"), Text: rec.ControlValue("001")},
		RecordOrigin:        "Converted from MARCXML to MODS version " + ModsVersion,
	}
	return doc
}

func titleFrom245(f Field) modsTitleInfo {
	title := f.First("a")
	ti := modsTitleInfo{
		SubTitle:   trimPunct(f.First("b")),
		PartNumber: trimPunct(f.First("n")),
		PartName:   trimPunct(f.First("p")),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(f.Ind2)); err == nil && n > 0 && n < len(title) {
		ti.NonSort = title[:n]
		title = title[n:]
	}
	ti.Title = trimPunct(title)
	return ti
}

func nameFrom(f Field, usage string) modsName {
	n := modsName{Usage: usage}
	switch f.Tag[1:] {
	case "00":
		n.Type = "personal"
	case "10":
		n.Type = "corporate"
	default:
		n.Type = "conference"
	}
	parts := "a"
	if n.Type != "personal" {
		parts = "abcdn"
	} else if q := f.First("q"); q != "" {
		parts = "aq"
	}
	if part := joinSubfields(f, parts); part != "" {
		n.NameParts = append(n.NameParts, modsNamePart{Text: trimPunct(part)})
	}
	if n.Type == "personal" {
		if d := f.First("d"); d != "" {
			n.NameParts = append(n.NameParts, modsNamePart{Type: "date", Text: trimPunct(d)})
		}
	}
	for _, role := range f.SubfieldValues("e") {
		n.Roles = append(n.Roles, modsRole{RoleTerm: modsTerm{Type: "text", Text: trimPunct(role)}})
	}
	for _, code := range f.SubfieldValues("4") {
		n.Roles = append(n.Roles, modsRole{RoleTerm: modsTerm{Authority: "marcrelator", Type: "code", Text: code}})
	}
	return n
}

var resourceTypes = map[byte]string{
	'a': "text",
	't': "text",
	'e': "cartographic",
	'f': "cartographic",
	'c': "notated music",
	'd': "notated music",
	'i': "sound recording-nonmusical",
	'j': "sound recording-musical",
	'k': "still image",
	'g': "moving image",
	'r': "three dimensional object",
	'm': "software, multimedia",
	'p': "mixed material",
}

func typeOfResource(leader string) *modsTypeOfResource {
	if len(leader) < 8 {
		return nil
	}
	text, ok := resourceTypes[leader[6]]
	if !ok {
		return nil
	}
	t := &modsTypeOfResource{Text: text}
	if leader[7] == 'c' {
		t.Collection = "yes"
	}
	switch leader[6] {
	case 'd', 'f', 't':
		t.Manuscript = "yes"
	}
	return t
}

var issuance = map[byte]string{
	'a': "monographic",
	'b': "continuing",
	'c': "monographic",
	'd': "monographic",
	'i': "integrating resource",
	'm': "monographic",
	's': "continuing",
}

func originInfo(rec *Record) *modsOriginInfo {
	oi := &modsOriginInfo{}

	var pub []Field
	pub = append(pub, rec.FieldsByTag("260")...)
	for _, f := range rec.FieldsByTag("264") {
		if f.Ind2 == "1" {
			pub = append(pub, f)
		}
	}
	for _, f := range pub {
		for _, p := range f.SubfieldValues("a") {
			oi.Places = append(oi.Places, modsPlace{PlaceTerm: modsTerm{Type: "text", Text: trimPunct(p)}})
		}
		for _, p := range f.SubfieldValues("b") {
			oi.Publishers = append(oi.Publishers, trimPunct(p))
		}
		for _, d := range f.SubfieldValues("c") {
			oi.DateIssued = append(oi.DateIssued, modsDate{Text: trimPunct(d)})
		}
	}

	cf008 := rec.ControlValue("008")
	if date := slice(cf008, 7, 11); isMarcDate(date) {
		oi.DateIssued = append(oi.DateIssued, modsDate{Encoding: "marc", KeyDate: "yes", Text: date})
	}
	if place := strings.TrimSpace(slice(cf008, 15, 18)); place != "" && place != "xx" && !strings.Contains(place, "|") {
		oi.Places = append(oi.Places, modsPlace{PlaceTerm: modsTerm{Authority: "marccountry", Type: "code", Text: place}})
	}

	if f := rec.FieldsByTag("250"); len(f) > 0 {
		oi.Edition = trimPunct(f[0].First("a"))
	}
	if len(rec.Leader) > 7 {
		oi.Issuance = issuance[rec.Leader[7]]
	}

	if len(oi.Places) == 0 && len(oi.Publishers) == 0 && len(oi.DateIssued) == 0 && oi.Edition == "" && oi.Issuance == "" {
		return nil
	}
	return oi
}

func isMarcDate(s string) bool {
	if len(s) != 4 {
		return false
	}
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == 'u':
		default:
			return false
		}
	}
	return digits > 0
}

var subjectParts = map[string]string{
	"v": "genre",
	"x": "topic",
	"y": "temporal",
	"z": "geographic",
}

func subjectFrom(f Field) (modsSubject, bool) {
	var head string
	switch f.Tag {
	case "600", "610":
		head = "name"
	case "650":
		head = "topic"
	case "651":
		head = "geographic"
	default:
		return modsSubject{}, false
	}
	s := modsSubject{}
	if f.Ind2 == "0" {
		s.Authority = "lcsh"
	}
	for _, sf := range f.Subfields {
		var elem string
		switch {
		case sf.Code == "a":
			elem = head
		default:
			elem = subjectParts[sf.Code]
		}
		if elem == "" || strings.TrimSpace(sf.Value) == "" {
			continue
		}
		s.Elements = append(s.Elements, modsSubElem{XMLName: xml.Name{Local: elem}, Text: trimPunct(sf.Value)})
	}
	return s, len(s.Elements) > 0
}

func joinSubfields(f Field, codes string) string {
	var parts []string
	for _, sf := range f.Subfields {
		if strings.Contains(codes, sf.Code) && strings.TrimSpace(sf.Value) != "" {
			parts = append(parts, strings.TrimSpace(sf.Value))
		}
	}
	return strings.Join(parts, " ")
}

// trimPunct strips the ISBD punctuation MARC leaves at the end of subfields.
func trimPunct(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, " /:;,=")
	if strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "..") && !endsWithInitial(s) {
		s = strings.TrimSuffix(s, ".")
	}
	return strings.TrimSpace(s)
}

// endsWithInitial reports strings like "Smith, J." whose final period is part
// of an abbreviation.
func endsWithInitial(s string) bool {
	r := []rune(s)
	n := len(r)
	return n >= 3 && unicode.IsUpper(r[n-2]) && (r[n-3] == ' ' || r[n-3] == '.')
}

func slice(s string, from, to int) string {
	if len(s) < to {
		return ""
	}
	return s[from:to]
}
