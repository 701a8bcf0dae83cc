package teatime_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teatime-io/teatime/pkg/teatime"
)

func TestDecodeBody(t *testing.T) {
	t.Parallel()

	t.Run("empty body decodes to an empty array", func(t *testing.T) {
		t.Parallel()

		value, err := teatime.DecodeBody(&teatime.Response{StatusCode: 204})
		require.NoError(t, err)
		assert.Equal(t, []any{}, value)
	})

	t.Run("object body", func(t *testing.T) {
		t.Parallel()

		value, err := teatime.DecodeBody(&teatime.Response{Body: []byte(`{"id":7,"name":"widget"}`)})
		require.NoError(t, err)

		obj, ok := value.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "widget", obj["name"])
	})

	t.Run("array body", func(t *testing.T) {
		t.Parallel()

		value, err := teatime.DecodeBody(&teatime.Response{Body: []byte(`[1,2,3]`)})
		require.NoError(t, err)
		assert.Equal(t, []any{float64(1), float64(2), float64(3)}, value)
	})

	t.Run("invalid JSON is a decode error carrying the body", func(t *testing.T) {
		t.Parallel()

		_, err := teatime.DecodeBody(&teatime.Response{Body: []byte("<html>error page</html>")})
		require.Error(t, err)

		var decErr *teatime.DecodeError

		require.ErrorAs(t, err, &decErr)
		assert.Equal(t, []byte("<html>error page</html>"), decErr.Body)
	})

	t.Run("non-UTF-8 body is rejected before decoding", func(t *testing.T) {
		t.Parallel()

		_, err := teatime.DecodeBody(&teatime.Response{Body: []byte{0xff, 0x00, 0x80}})
		require.Error(t, err)
		assert.True(t, teatime.IsDecodeError(err))
		assert.Contains(t, err.Error(), "not valid UTF-8")
	})
}

func TestClient_RequestJSON(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, "https://api.example.com")
	defer client.Close()

	mock.respond = func(roundTrip) (*teatime.Response, error) {
		return &teatime.Response{
			StatusCode: 200,
			Status:     "200 OK",
			Headers:    http.Header{},
			Body:       []byte(`[{"id":1},{"id":2}]`),
		}, nil
	}

	value, err := client.RequestJSON(context.Background(), http.MethodGet, teatime.Rel("items"), nil)
	require.NoError(t, err)

	items, ok := value.([]any)
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestExtractString(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"access_token": "tok-1",
		"auth": map[string]any{
			"client_token":   "tok-2",
			"lease_duration": float64(3600),
		},
		"count": float64(3),
	}

	tests := []struct {
		name   string
		path   []string
		want   string
		wantOK bool
	}{
		{name: "top-level key", path: []string{"access_token"}, want: "tok-1", wantOK: true},
		{name: "nested key", path: []string{"auth", "client_token"}, want: "tok-2", wantOK: true},
		{name: "missing key", path: []string{"refresh_token"}, wantOK: false},
		{name: "missing nested key", path: []string{"auth", "accessor"}, wantOK: false},
		{name: "non-string value", path: []string{"count"}, wantOK: false},
		{name: "descend through non-object", path: []string{"access_token", "deeper"}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := teatime.ExtractString(doc, tt.path...)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractNumber(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"expires_in": float64(7200),
		"auth":       map[string]any{"lease_duration": float64(3600)},
		"token":      "not-a-number",
	}

	n, ok := teatime.ExtractNumber(doc, "expires_in")
	require.True(t, ok)
	assert.InDelta(t, 7200, n, 0)

	n, ok = teatime.ExtractNumber(doc, "auth", "lease_duration")
	require.True(t, ok)
	assert.InDelta(t, 3600, n, 0)

	_, ok = teatime.ExtractNumber(doc, "token")
	assert.False(t, ok)

	_, ok = teatime.ExtractNumber(doc, "missing")
	assert.False(t, ok)
}
