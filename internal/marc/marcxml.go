package marc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// SlimNamespace is the MARC21 slim XML namespace.
const SlimNamespace = "http://www.loc.gov/MARC21/slim"

// MarshalMARCXML renders the record as a MARC21 slim <record> document with
// fields in record order.
func (r *Record) MarshalMARCXML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)

	root := xml.StartElement{
		Name: xml.Name{Local: "record"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: SlimNamespace}},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}
	if err := encodeText(enc, "leader", nil, r.Leader); err != nil {
		return nil, err
	}
	for _, f := range r.Fields {
		if f.IsControl() {
			if err := encodeText(enc, "controlfield", []xml.Attr{attr("tag", f.Tag)}, f.Value); err != nil {
				return nil, err
			}
			continue
		}
		start := xml.StartElement{
			Name: xml.Name{Local: "datafield"},
			Attr: []xml.Attr{attr("tag", f.Tag), attr("ind1", f.Ind1), attr("ind2", f.Ind2)},
		}
		if err := enc.EncodeToken(start); err != nil {
			return nil, err
		}
		for _, sf := range f.Subfields {
			if err := encodeText(enc, "subfield", []xml.Attr{attr("code", sf.Code)}, sf.Value); err != nil {
				return nil, err
			}
		}
		if err := enc.EncodeToken(start.End()); err != nil {
			return nil, err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func encodeText(enc *xml.Encoder, name string, attrs []xml.Attr, text string) error {
	start := xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := enc.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

type slimRecord struct {
	XMLName xml.Name   `xml:"record"`
	Leader  string     `xml:"leader"`
	Fields  []slimNode `xml:",any"`
}

type slimNode struct {
	XMLName   xml.Name
	Tag       string         `xml:"tag,attr"`
	Ind1      string         `xml:"ind1,attr"`
	Ind2      string         `xml:"ind2,attr"`
	Text      string         `xml:",chardata"`
	Subfields []slimSubfield `xml:"subfield"`
}

type slimSubfield struct {
	Code string `xml:"code,attr"`
	Text string `xml:",chardata"`
}

// ParseMARCXML reads a single MARC21 slim <record>. A <collection> wrapper
// is accepted and its first record is returned.
func ParseMARCXML(data []byte) (*Record, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("marcxml: no record element")
		}
		if err != nil {
			return nil, fmt.Errorf("marcxml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "record" {
			continue
		}
		var sr slimRecord
		if err := dec.DecodeElement(&sr, &start); err != nil {
			return nil, fmt.Errorf("marcxml: %w", err)
		}
		return sr.toRecord(), nil
	}
}

func (sr slimRecord) toRecord() *Record {
	rec := &Record{Leader: sr.Leader}
	for _, n := range sr.Fields {
		switch n.XMLName.Local {
		case "controlfield":
			rec.Fields = append(rec.Fields, Field{Tag: n.Tag, Value: n.Text})
		case "datafield":
			f := Field{Tag: n.Tag, Ind1: n.Ind1, Ind2: n.Ind2}
			for _, sf := range n.Subfields {
				f.Subfields = append(f.Subfields, Subfield{Code: sf.Code, Value: sf.Text})
			}
			rec.Fields = append(rec.Fields, f)
		}
	}
	return rec
}
