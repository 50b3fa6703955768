package marc

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Transformer turns a MARCXML document into descriptive metadata XML. It
// stands in for the XSLT stylesheet and can be swapped for another engine.
type Transformer interface {
	Transform(ctx context.Context, marcxml []byte) ([]byte, error)
}

// TransformError is a transform that failed or produced something other than
// a well-formed document with the expected root element. Once a record has
// been validated this is unexpected.
type TransformError struct {
	Catkey string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transforming MARC record %s: %v", e.Catkey, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// ToMODS renders rec as MARCXML, runs it through t and checks the output has
// a <mods> root.
func ToMODS(ctx context.Context, t Transformer, rec *ValidatedRecord) ([]byte, error) {
	marcxml, err := rec.MarshalMARCXML()
	if err != nil {
		return nil, &TransformError{Catkey: rec.Catkey(), Err: err}
	}
	out, err := t.Transform(ctx, marcxml)
	if err != nil {
		return nil, &TransformError{Catkey: rec.Catkey(), Err: err}
	}
	if err := checkRoot(out, "mods"); err != nil {
		return nil, &TransformError{Catkey: rec.Catkey(), Err: err}
	}
	return out, nil
}

// checkRoot verifies data is well-formed XML whose root element is named root.
func checkRoot(data []byte, root string) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	depth := 0
	seenRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed output: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if seenRoot {
					return errors.New("malformed output: multiple root elements")
				}
				if t.Name.Local != root {
					return fmt.Errorf("unexpected root element <%s>, want <%s>", t.Name.Local, root)
				}
				seenRoot = true
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	if !seenRoot {
		return errors.New("empty output")
	}
	return nil
}
