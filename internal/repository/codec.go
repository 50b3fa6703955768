package repository

import (
	"encoding/json"
	"fmt"

	"dor/pkg/platform/sentinel"
)

type envelope struct {
	Type   Kind            `json:"type"`
	Object json.RawMessage `json:"object"`
}

// Encode renders an object as {"type": kind, "object": {...}}.
func Encode(obj Object) ([]byte, error) {
	if obj == nil {
		return nil, fmt.Errorf("encode object: nil object")
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode object %s: %w", obj.Core().ID, err)
	}
	return json.Marshal(envelope{Type: obj.Kind(), Object: body})
}

// Decode reverses Encode. Unreadable bytes or an unknown kind wrap
// sentinel.ErrCorrupt.
func Decode(data []byte) (Object, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrCorrupt, err)
	}

	var obj Object
	switch env.Type {
	case KindItem:
		obj = &Item{}
	case KindEtd:
		obj = &Etd{}
	case KindCollection:
		obj = &Collection{}
	case KindAdminPolicy:
		obj = &AdminPolicy{}
	case KindAgreement:
		obj = &Agreement{}
	default:
		return nil, fmt.Errorf("%w: unknown object type %q", sentinel.ErrCorrupt, env.Type)
	}
	if err := json.Unmarshal(env.Object, obj); err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrCorrupt, err)
	}
	return obj, nil
}

// Clone returns a deep copy of obj.
func Clone(obj Object) (Object, error) {
	data, err := Encode(obj)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
