package gitlab_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teatime-io/teatime/pkg/gitlab"
	"github.com/teatime-io/teatime/pkg/teatime"
)

func newClient(t *testing.T, endpoint string) *gitlab.Client {
	t.Helper()

	client, err := gitlab.New(endpoint)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func TestNew(t *testing.T) {
	t.Parallel()

	client := newClient(t, "https://gitlab.example.com/api/v4")
	assert.Equal(t, "https://gitlab.example.com/api/v4/", client.BaseURI().String())

	_, err := gitlab.New("")
	require.Error(t, err)
	assert.True(t, teatime.IsConfigurationError(err))
}

func TestClient_Login_NoAuth(t *testing.T) {
	t.Parallel()

	client := newClient(t, "https://gitlab.example.com/api/v4")
	client.SetToken(&teatime.Token{Value: "stale", Kind: teatime.TokenKindBearer})

	require.NoError(t, client.Login(context.Background(), teatime.NoAuth{}))
	assert.Nil(t, client.Token())
}

func TestClient_Login_APIKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/api/v4/projects", request.URL.Path)
		assert.Equal(t, "secret-key", request.Header.Get("PRIVATE-TOKEN"))
		assert.Empty(t, request.Header.Get("Authorization"))

		writer.Header().Set("Content-Type", "application/json")
		fmt.Fprint(writer, `[]`)
	}))
	defer server.Close()

	client := newClient(t, server.URL+"/api/v4")

	require.NoError(t, client.Login(context.Background(), teatime.APIKey{Key: "secret-key"}))
	require.NotNil(t, client.Token())
	assert.Equal(t, teatime.TokenKindPrivate, client.Token().Kind)

	resp, err := client.Get(context.Background(), teatime.Rel("projects"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Login_UserPass(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()

	// The token exchange happens at the origin, not under /api/v4.
	mux.HandleFunc("/oauth/token", func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

		var body map[string]any

		require.NoError(t, json.NewDecoder(request.Body).Decode(&body))
		assert.Equal(t, "password", body["grant_type"])
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, "s3cret", body["password"])

		writer.Header().Set("Content-Type", "application/json")
		fmt.Fprint(writer, `{"access_token":"oauth-tok","token_type":"bearer","expires_in":7200}`)
	})
	mux.HandleFunc("/api/v4/user", func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "Bearer oauth-tok", request.Header.Get("Authorization"))
		assert.Empty(t, request.Header.Get("PRIVATE-TOKEN"))

		writer.Header().Set("Content-Type", "application/json")
		fmt.Fprint(writer, `{"username":"alice"}`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newClient(t, server.URL+"/api/v4")

	err := client.Login(context.Background(), teatime.UserPass{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)

	token := client.Token()
	require.NotNil(t, token)
	assert.Equal(t, "oauth-tok", token.Value)
	assert.Equal(t, teatime.TokenKindBearer, token.Kind)
	assert.True(t, token.Valid())
	assert.WithinDuration(t, time.Now().Add(7200*time.Second), token.ExpiresAt, time.Minute)

	resp, err := client.Get(context.Background(), teatime.Rel("user"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_Login_TwoFactor(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "/oauth/token", request.URL.Path)

		var body map[string]any

		require.NoError(t, json.NewDecoder(request.Body).Decode(&body))

		// The password grant has no second-factor field; the code stays local.
		_, hasPasscode := body["passcode"]
		_, hasOTP := body["otp"]
		assert.False(t, hasPasscode)
		assert.False(t, hasOTP)

		writer.Header().Set("Content-Type", "application/json")
		fmt.Fprint(writer, `{"access_token":"oauth-tok"}`)
	}))
	defer server.Close()

	client := newClient(t, server.URL+"/api/v4")

	err := client.Login(context.Background(), teatime.UserPassTwoFactor{
		Username:    "alice",
		Password:    "s3cret",
		OneTimeCode: "123456",
	})
	require.NoError(t, err)
	require.NotNil(t, client.Token())
	assert.True(t, client.Token().ExpiresAt.IsZero())
}

func TestClient_Login_BadCredentials(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(writer, `{"error":"invalid_grant"}`)
	}))
	defer server.Close()

	client := newClient(t, server.URL+"/api/v4")

	err := client.Login(context.Background(), teatime.UserPass{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, teatime.IsAuthError(err))

	var authErr *teatime.AuthError

	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "gitlab", authErr.Vendor)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Contains(t, string(authErr.Body), "invalid_grant")
	assert.Nil(t, client.Token())
}

func TestClient_Login_MissingTokenField(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		fmt.Fprint(writer, `{"token_type":"bearer"}`)
	}))
	defer server.Close()

	client := newClient(t, server.URL+"/api/v4")

	err := client.Login(context.Background(), teatime.UserPass{Username: "alice", Password: "s3cret"})
	require.Error(t, err)
	assert.True(t, teatime.IsAuthError(err), "a well-formed body without the token field is an auth failure")
	assert.False(t, teatime.IsDecodeError(err))
	assert.Nil(t, client.Token())
}

func TestClient_RequestPaged(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")

		switch request.URL.Query().Get("page") {
		case "", "1":
			writer.Header().Set("Link", fmt.Sprintf(`<%s/api/v4/projects?page=2>; rel="next"`, server.URL))
			fmt.Fprint(writer, `[{"id":1},{"id":2}]`)
		case "2":
			writer.Header().Set("Link", fmt.Sprintf(`<%s/api/v4/projects?page=1>; rel="prev"`, server.URL))
			fmt.Fprint(writer, `[{"id":3}]`)
		default:
			http.NotFound(writer, request)
		}
	})

	server = httptest.NewServer(mux)
	defer server.Close()

	client := newClient(t, server.URL+"/api/v4")

	pages, err := client.RequestPaged(context.Background(), http.MethodGet, teatime.Rel("projects"), nil)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	first, ok := pages[0].([]any)
	require.True(t, ok)
	assert.Len(t, first, 2)

	second, ok := pages[1].([]any)
	require.True(t, ok)
	assert.Len(t, second, 1)
}
