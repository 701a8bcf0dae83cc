package teatime

import (
	"context"
	"encoding/json"
	"errors"
	"unicode/utf8"
)

// errInvalidUTF8 marks bodies rejected before JSON decoding is attempted.
var errInvalidUTF8 = errors.New("response body is not valid UTF-8")

// DecodeBody decodes a response body to a JSON value. An empty body decodes
// to an empty JSON array by convention, not an error. A body that is not
// valid UTF-8 or not valid JSON is a DecodeError carrying the raw bytes.
func DecodeBody(resp *Response) (any, error) {
	if len(resp.Body) == 0 {
		return []any{}, nil
	}

	var value any

	err := decodeJSON(resp.Body, &value)
	if err != nil {
		return nil, err
	}

	return value, nil
}

func decodeJSON(body []byte, v any) error {
	if !utf8.Valid(body) {
		return &DecodeError{Body: body, Err: errInvalidUTF8}
	}

	err := json.Unmarshal(body, v)
	if err != nil {
		return &DecodeError{Body: body, Err: err}
	}

	return nil
}

// RequestJSON executes one request and decodes the response body to JSON.
// The status code is not inspected; callers that treat non-2xx as failure
// check the response themselves or use a binding that does.
func (c *Client) RequestJSON(ctx context.Context, method string, target Target, params Params) (any, error) {
	resp, err := c.Do(ctx, NewRequest(method, target).WithParams(params))
	if err != nil {
		return nil, err
	}

	return DecodeBody(resp)
}

// ExtractString reads a string at a path of nested JSON object keys, such as
// ExtractString(doc, "auth", "client_token"). It reports false when any key
// is missing or the value is not a string; login flows turn that into an
// AuthError rather than a decode failure.
func ExtractString(doc any, path ...string) (string, bool) {
	value, ok := extractPath(doc, path)
	if !ok {
		return "", false
	}

	s, ok := value.(string)

	return s, ok
}

// ExtractNumber reads a JSON number at a path of nested object keys. It
// reports false when any key is missing or the value is not a number.
func ExtractNumber(doc any, path ...string) (float64, bool) {
	value, ok := extractPath(doc, path)
	if !ok {
		return 0, false
	}

	n, ok := value.(float64)

	return n, ok
}

func extractPath(doc any, path []string) (any, bool) {
	current := doc

	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
