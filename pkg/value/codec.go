package value

import (
	"encoding/json"
	"fmt"
)

// wireValue is the on-disk/on-wire encoding for a Value, used by pkg/graph's
// persistent engine. Node and Edge round-trip by ID only here: a persisted
// Node/Edge Value is rehydrated as a lightweight reference, since the
// Badger-backed engine always resolves entity Values through its own
// node/edge tables rather than embedding full copies inside property maps.
type wireValue struct {
	Kind  string            `json:"k"`
	Bool  *bool             `json:"b,omitempty"`
	Int   *int64            `json:"i,omitempty"`
	Float *float64          `json:"f,omitempty"`
	Str   *string           `json:"s,omitempty"`
	Date  *Date             `json:"dat,omitempty"`
	DTime *DateTime         `json:"dtm,omitempty"`
	Time  *Time             `json:"tim,omitempty"`
	Dur   *Duration         `json:"dur,omitempty"`
	Pt    *Point            `json:"pt,omitempty"`
	List  []wireValue       `json:"list,omitempty"`
	Map   map[string]wireValue `json:"map,omitempty"`
	RefID string            `json:"ref,omitempty"`
}

// MarshalJSON implements json.Marshaler so Value can be stored directly as a
// property inside the BadgerDB node/edge payloads.
func (v Value) MarshalJSON() ([]byte, error) {
	w, err := v.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (v Value) toWire() (wireValue, error) {
	switch v.kind {
	case KindNull:
		return wireValue{Kind: "null"}, nil
	case KindBool:
		b := v.b
		return wireValue{Kind: "bool", Bool: &b}, nil
	case KindInt:
		i := v.i
		return wireValue{Kind: "int", Int: &i}, nil
	case KindFloat:
		f := v.f
		return wireValue{Kind: "float", Float: &f}, nil
	case KindString:
		s := v.s
		return wireValue{Kind: "string", Str: &s}, nil
	case KindDate:
		d := v.dat
		return wireValue{Kind: "date", Date: &d}, nil
	case KindDateTime:
		d := v.dtm
		return wireValue{Kind: "datetime", DTime: &d}, nil
	case KindTime:
		t := v.tim
		return wireValue{Kind: "time", Time: &t}, nil
	case KindDuration:
		d := v.dur
		return wireValue{Kind: "duration", Dur: &d}, nil
	case KindPoint:
		p := v.pt
		return wireValue{Kind: "point", Pt: &p}, nil
	case KindDistance:
		f := v.f
		return wireValue{Kind: "distance", Float: &f}, nil
	case KindList:
		items := make([]wireValue, len(v.list))
		for i, e := range v.list {
			w, err := e.toWire()
			if err != nil {
				return wireValue{}, err
			}
			items[i] = w
		}
		return wireValue{Kind: "list", List: items}, nil
	case KindMap:
		m := make(map[string]wireValue, len(v.mp))
		for k, e := range v.mp {
			w, err := e.toWire()
			if err != nil {
				return wireValue{}, err
			}
			m[k] = w
		}
		return wireValue{Kind: "map", Map: m}, nil
	case KindNode:
		return wireValue{Kind: "node", RefID: string(v.node.ID)}, nil
	case KindEdge:
		return wireValue{Kind: "edge", RefID: string(v.edge.ID)}, nil
	default:
		return wireValue{}, fmt.Errorf("%w: cannot encode kind %v", ErrTypeMismatch, v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Node/Edge references decode as
// a Node/Edge stub carrying only the ID; the persistent engine resolves it
// against its own tables when the property is read back through the query
// layer rather than through this codec.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out, err := w.toValue()
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func (w wireValue) toValue() (Value, error) {
	switch w.Kind {
	case "null", "":
		return Null, nil
	case "bool":
		return NewBool(*w.Bool), nil
	case "int":
		return NewInt(*w.Int), nil
	case "float":
		return NewFloat(*w.Float), nil
	case "string":
		return NewString(*w.Str), nil
	case "date":
		return NewDate(*w.Date), nil
	case "datetime":
		return NewDateTime(*w.DTime), nil
	case "time":
		return NewTime(*w.Time), nil
	case "duration":
		return NewDuration(*w.Dur), nil
	case "point":
		return NewPoint(*w.Pt), nil
	case "distance":
		return NewDistance(*w.Float), nil
	case "list":
		items := make([]Value, len(w.List))
		for i, e := range w.List {
			v, err := e.toValue()
			if err != nil {
				return Null, err
			}
			items[i] = v
		}
		return NewList(items), nil
	case "map":
		m := make(map[string]Value, len(w.Map))
		for k, e := range w.Map {
			v, err := e.toValue()
			if err != nil {
				return Null, err
			}
			m[k] = v
		}
		return NewMap(m), nil
	case "node":
		return NewNode(&Node{ID: NodeID(w.RefID)}), nil
	case "edge":
		return NewEdge(&Edge{ID: EdgeID(w.RefID)}), nil
	default:
		return Null, fmt.Errorf("%w: unknown wire kind %q", ErrTypeMismatch, w.Kind)
	}
}
