package teatime

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Params is the set of named JSON values sent with a parameterized call.
// Ordering is not significant; only the serialized content matters. Params
// always serialize to a top-level JSON object request body, never to the
// query string (query strings travel inside the Target).
type Params map[string]any

// Set stores a parameter and returns the map for chaining.
func (p Params) Set(name string, value any) Params {
	p[name] = value

	return p
}

// Clone returns a shallow copy of the parameter map.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}

	clone := make(Params, len(p))
	for name, value := range p {
		clone[name] = value
	}

	return clone
}

// IsZero reports whether there is nothing to serialize.
func (p Params) IsZero() bool {
	return len(p) == 0
}

// Encode serializes the parameters as a JSON object. Empty params encode to
// nil, meaning "send no body".
func (p Params) Encode() ([]byte, error) {
	if p.IsZero() {
		return nil, nil
	}

	body, err := json.Marshal(map[string]any(p))
	if err != nil {
		return nil, fmt.Errorf("encoding parameters: %w", err)
	}

	return body, nil
}

// Names returns the parameter names in sorted order, for stable logging.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
