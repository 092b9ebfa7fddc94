package hit

import "strings"

// Kind is a known result category.
type Kind string

// Known result kinds.
const (
	KindAddress     Kind = "address"
	KindStreet      Kind = "street"
	KindHouseNumber Kind = "houseNumber"
	KindDistrict    Kind = "district"
	KindParcel      Kind = "parcel"
	// KindTopic is a map layer from the topic tree.
	KindTopic  Kind = "topic"
	KindFolder Kind = "folder"
	// KindFeature is a feature found by attribute search.
	KindFeature Kind = "feature"
	KindPlace   Kind = "place"
	// KindDataset is a catalogue dataset (GDI search).
	KindDataset Kind = "dataset"
)

var knownKinds = []Kind{
	KindAddress, KindStreet, KindHouseNumber, KindDistrict, KindParcel,
	KindTopic, KindFolder, KindFeature, KindPlace, KindDataset,
}

// Kinds returns all known kinds in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(knownKinds))
	copy(out, knownKinds)
	return out
}

// IsValid checks if the kind is one of the known values.
func (k Kind) IsValid() bool {
	for _, known := range knownKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Type is the grouping key of a hit: a known kind or a free-form label.
// The zero value is an empty Other type.
type Type struct {
	kind  Kind
	label string
}

// Known creates a Type for a known kind.
func Known(k Kind) Type { return Type{kind: k} }

// Other creates a Type for a category without a known kind.
func Other(label string) Type { return Type{label: strings.TrimSpace(label)} }

// ParseType maps a kind key to a known Type, anything else to Other.
func ParseType(s string) Type {
	if k := Kind(strings.TrimSpace(s)); k.IsValid() {
		return Known(k)
	}
	return Other(s)
}

// Kind returns the known kind, empty for Other types.
func (t Type) Kind() Kind { return t.kind }

// IsKnown reports whether the type carries a known kind.
func (t Type) IsKnown() bool { return t.kind != "" }

// Key returns the kind key for known types and the label otherwise.
func (t Type) Key() string {
	if t.kind != "" {
		return string(t.kind)
	}
	return t.label
}

func (t Type) String() string { return t.Key() }

// MarshalText encodes the type as its key.
func (t Type) MarshalText() ([]byte, error) { return []byte(t.Key()), nil }

// UnmarshalText decodes a key with ParseType.
func (t *Type) UnmarshalText(b []byte) error {
	*t = ParseType(string(b))
	return nil
}
