// Package fields maps submitted form pairs onto scalar, sequence and mapping values.
package fields

import (
	"encoding/json"
	"strings"
)

// Kind selects the shape of a Value.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "scalar"
	}
}

// Name is a parsed field name. "tags[]" is a sequence target named "tags",
// "info{email}" is the "email" entry of the mapping "info", everything else
// is a scalar.
type Name struct {
	Base string
	Kind Kind
	Key  string
}

// ParseName splits a submitted or declared field name by naming convention.
func ParseName(raw string) Name {
	if base, ok := strings.CutSuffix(raw, "[]"); ok && base != "" {
		return Name{Base: base, Kind: KindSequence}
	}

	if strings.HasSuffix(raw, "}") {
		if open := strings.Index(raw, "{"); open > 0 {
			return Name{Base: raw[:open], Kind: KindMapping, Key: raw[open+1 : len(raw)-1]}
		}
	}

	return Name{Base: raw, Kind: KindScalar}
}

// Value is a tagged variant: exactly one of Scalar, Sequence or Mapping is
// meaningful, as selected by Kind.
type Value struct {
	Kind     Kind
	Scalar   string
	Sequence []string
	Mapping  map[string]string
}

func Scalar(value string) Value {
	return Value{Kind: KindScalar, Scalar: value}
}

func Sequence(values ...string) Value {
	return Value{Kind: KindSequence, Sequence: values}
}

func Mapping(values map[string]string) Value {
	return Value{Kind: KindMapping, Mapping: values}
}

// Empty reports whether no data was submitted for the value.
func (v Value) Empty() bool {
	switch v.Kind {
	case KindSequence:
		return len(v.Sequence) == 0
	case KindMapping:
		return len(v.Mapping) == 0
	default:
		return v.Scalar == ""
	}
}

// Elements returns every submitted string in the value.
func (v Value) Elements() []string {
	switch v.Kind {
	case KindSequence:
		return v.Sequence
	case KindMapping:
		elements := make([]string, 0, len(v.Mapping))
		for _, element := range v.Mapping {
			elements = append(elements, element)
		}

		return elements
	default:
		return []string{v.Scalar}
	}
}

// Serialize renders the value in the string form the engine accepts:
// scalars verbatim, sequences and mappings as JSON.
func (v Value) Serialize() (string, error) {
	var (
		data []byte
		err  error
	)

	switch v.Kind {
	case KindSequence:
		sequence := v.Sequence
		if sequence == nil {
			sequence = []string{}
		}

		data, err = json.Marshal(sequence)
	case KindMapping:
		mapping := v.Mapping
		if mapping == nil {
			mapping = map[string]string{}
		}

		data, err = json.Marshal(mapping)
	default:
		return v.Scalar, nil
	}

	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Any returns the value as plain Go data.
func (v Value) Any() any {
	switch v.Kind {
	case KindSequence:
		return v.Sequence
	case KindMapping:
		return v.Mapping
	default:
		return v.Scalar
	}
}
