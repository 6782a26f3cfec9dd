package fields

// Pair is one submitted name/value pair. Submission order is significant for
// sequence fields.
type Pair struct {
	Name  string
	Value string
}

// Pairs is the ordered submission.
type Pairs []Pair

// Get returns the first value submitted under name.
func (p Pairs) Get(name string) string {
	for _, pair := range p {
		if pair.Name == name {
			return pair.Value
		}
	}

	return ""
}

// Has reports whether name was submitted with a non-empty value.
func (p Pairs) Has(name string) bool {
	return p.Get(name) != ""
}

// Map returns the first value of every name.
func (p Pairs) Map() map[string]string {
	m := make(map[string]string, len(p))

	for _, pair := range p {
		if _, exists := m[pair.Name]; !exists {
			m[pair.Name] = pair.Value
		}
	}

	return m
}

// FromMap builds pairs from a plain map. Order follows map iteration and is
// therefore only suitable for scalar submissions.
func FromMap(values map[string]string) Pairs {
	pairs := make(Pairs, 0, len(values))
	for name, value := range values {
		pairs = append(pairs, Pair{Name: name, Value: value})
	}

	return pairs
}
