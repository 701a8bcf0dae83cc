//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teatime-io/teatime/cmd/teatime/commands"
	"github.com/teatime-io/teatime/internal/transport"
	"github.com/teatime-io/teatime/pkg/cache"
	"github.com/teatime-io/teatime/pkg/gitlab"
	"github.com/teatime-io/teatime/pkg/sensu"
	"github.com/teatime-io/teatime/pkg/teatime"
	"github.com/teatime-io/teatime/pkg/vault"
)

// TestGitLabWorkflow_PasswordGrantJourney walks the full GitLab journey:
// password login against the endpoint origin, an authenticated single
// request, then an autopaginated listing across Link headers.
func TestGitLabWorkflow_PasswordGrantJourney(t *testing.T) {
	gl := StartFakeGitLab(t)

	client, err := gitlab.New(gl.Endpoint())
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Login(ctx, teatime.UserPass{Username: gl.Username, Password: gl.Password}))

	token := client.Token()
	require.NotNil(t, token)
	assert.Equal(t, teatime.TokenKindBearer, token.Kind)
	assert.Equal(t, gl.IssuedTokens()[0], token.Value)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), token.ExpiresAt, time.Minute)

	// The grant went to the origin, not under the API base.
	grant, ok := gl.Log.Last(http.MethodPost, "/oauth/token")
	require.True(t, ok)

	var grantBody map[string]any
	require.NoError(t, json.Unmarshal(grant.Body, &grantBody))
	assert.Equal(t, "password", grantBody["grant_type"])
	assert.Equal(t, gl.Username, grantBody["username"])
	assert.Equal(t, gl.Password, grantBody["password"])

	doc, err := client.RequestJSON(ctx, http.MethodGet, teatime.Rel("user"), nil)
	require.NoError(t, err)

	user, ok := doc.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, gl.Username, user["username"])

	record, ok := gl.Log.Last(http.MethodGet, "/api/v4/user")
	require.True(t, ok)
	assert.Equal(t, "Bearer "+token.Value, record.Header.Get("Authorization"))

	pages, err := client.RequestPaged(ctx, http.MethodGet, teatime.Rel("projects"), nil)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, 3, gl.Log.Count(http.MethodGet, "/api/v4/projects"))

	var paths []string
	for _, page := range pages {
		items, ok := page.([]any)
		require.True(t, ok)
		for _, item := range items {
			project, ok := item.(map[string]any)
			require.True(t, ok)
			paths = append(paths, project["path_with_namespace"].(string))
		}
	}
	assert.Equal(t, []string{
		"acme/app-1", "acme/app-2", "acme/app-3",
		"acme/app-4", "acme/app-5", "acme/app-6",
	}, paths)
}

// TestGitLabWorkflow_APIKeySession verifies that an API key login is purely
// local and that the key travels as a private token on later requests.
func TestGitLabWorkflow_APIKeySession(t *testing.T) {
	gl := StartFakeGitLab(t)

	client, err := gitlab.New(gl.Endpoint())
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Login(ctx, teatime.APIKey{Key: gl.APIKey}))
	assert.Zero(t, gl.Log.Len(), "API key login must not touch the network")

	token := client.Token()
	require.NotNil(t, token)
	assert.Equal(t, teatime.TokenKindPrivate, token.Kind)

	doc, err := client.RequestJSON(ctx, http.MethodGet, teatime.Rel("user"), nil)
	require.NoError(t, err)
	assert.Equal(t, gl.Username, doc.(map[string]any)["username"])

	record, ok := gl.Log.Last(http.MethodGet, "/api/v4/user")
	require.True(t, ok)
	assert.Equal(t, gl.APIKey, record.Header.Get("PRIVATE-TOKEN"))
	assert.Empty(t, record.Header.Get("Authorization"))
}

// TestGitLabWorkflow_RejectedPassword verifies that a rejected grant surfaces
// as an auth error, leaves no session behind, and that later requests still
// return server responses rather than transport failures.
func TestGitLabWorkflow_RejectedPassword(t *testing.T) {
	gl := StartFakeGitLab(t)

	client, err := gitlab.New(gl.Endpoint())
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	err = client.Login(ctx, teatime.UserPass{Username: gl.Username, Password: "wrong"})
	require.Error(t, err)

	var authErr *teatime.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "gitlab", authErr.Vendor)
	assert.Equal(t, http.StatusBadRequest, authErr.Status)
	assert.Nil(t, client.Token())

	// Unauthenticated requests go through; the 401 arrives as a decoded
	// response body, not an error.
	doc, err := client.RequestJSON(ctx, http.MethodGet, teatime.Rel("user"), nil)
	require.NoError(t, err)
	assert.Equal(t, "401 Unauthorized", doc.(map[string]any)["message"])
}

// TestVaultWorkflow_LDAPLoginListing walks the Vault journey: an LDAP login
// with a one-time code, an authenticated listing carrying the client token,
// and the single-page listing contract even when the server sends a Link
// header.
func TestVaultWorkflow_LDAPLoginListing(t *testing.T) {
	vt := StartFakeVault(t)

	client, err := vault.New(vt.Server.URL)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Login(ctx, teatime.UserPassTwoFactor{
		Username:    vt.Username,
		Password:    vt.Password,
		OneTimeCode: vt.Passcode,
	}))

	token := client.Token()
	require.NotNil(t, token)
	assert.Equal(t, teatime.TokenKindVault, token.Kind)
	assert.Equal(t, vt.Token, token.Value)

	login, ok := vt.Log.Last(http.MethodPost, "/v1/auth/ldap/login/"+vt.Username)
	require.True(t, ok)

	var loginBody map[string]any
	require.NoError(t, json.Unmarshal(login.Body, &loginBody))
	assert.Equal(t, vt.Password, loginBody["password"])
	assert.Equal(t, vt.Passcode, loginBody["passcode"])

	pages, err := client.RequestPaged(ctx, http.MethodGet, teatime.Rel("v1/secret/metadata"), nil)
	require.NoError(t, err)
	require.Len(t, pages, 1, "Vault listings are complete in one page")
	assert.Equal(t, 1, vt.Log.Count(http.MethodGet, "/v1/secret/metadata"))

	record, ok := vt.Log.Last(http.MethodGet, "/v1/secret/metadata")
	require.True(t, ok)
	assert.Equal(t, vt.Token, record.Header.Get("X-Vault-Token"))

	data, ok := pages[0].(map[string]any)["data"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, data["keys"], 3)
}

// TestSensuWorkflow_UnauthenticatedJourney verifies the no-auth vendor: login
// succeeds without traffic, clears stale tokens, and requests carry no
// authentication headers.
func TestSensuWorkflow_UnauthenticatedJourney(t *testing.T) {
	sn := StartFakeSensu(t)

	client, err := sensu.New(sn.Server.URL)
	require.NoError(t, err)
	defer client.Close()

	client.SetToken(&teatime.Token{Value: "stale", Kind: teatime.TokenKindBearer})

	ctx := context.Background()
	require.NoError(t, client.Login(ctx, teatime.NoAuth{}))
	assert.Nil(t, client.Token())
	assert.Zero(t, sn.Log.Len(), "no-auth login must not touch the network")

	doc, err := client.RequestJSON(ctx, http.MethodGet, teatime.Rel("events"), nil)
	require.NoError(t, err)
	assert.Len(t, doc.([]any), 3)

	record, ok := sn.Log.Last(http.MethodGet, "/events")
	require.True(t, ok)
	assert.Empty(t, record.Header.Get("Authorization"))
	assert.Empty(t, record.Header.Get("PRIVATE-TOKEN"))
	assert.Empty(t, record.Header.Get("X-Vault-Token"))

	// Without a Link header the listing is a single page.
	pages, err := client.RequestPaged(ctx, http.MethodGet, teatime.Rel("events"), nil)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

// TestWorkflow_TransientFailureRetry verifies that a transport configured
// with a retry budget absorbs transient 503s without the caller noticing.
func TestWorkflow_TransientFailureRetry(t *testing.T) {
	gl := StartFakeGitLab(t)

	retrying := transport.New(transport.WithRetryConfig(3, time.Millisecond, 5*time.Millisecond))
	client, err := gitlab.New(gl.Endpoint(), gitlab.WithTransport(retrying))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Login(ctx, teatime.APIKey{Key: gl.APIKey}))

	gl.FailNext(2)

	doc, err := client.RequestJSON(ctx, http.MethodGet, teatime.Rel("user"), nil)
	require.NoError(t, err)
	assert.Equal(t, gl.Username, doc.(map[string]any)["username"])
	assert.Equal(t, 3, gl.Log.Count(http.MethodGet, "/api/v4/user"))
}

// TestWorkflow_CachedReads verifies the caching transport end to end:
// repeated reads hit the server once, and a write invalidates the entry.
func TestWorkflow_CachedReads(t *testing.T) {
	gl := StartFakeGitLab(t)

	manager := cache.NewManager(cache.NewMemoryCache(64), time.Minute)
	cached := cache.NewTransport(transport.New(), manager)
	client, err := gitlab.New(gl.Endpoint(), gitlab.WithTransport(cached))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Login(ctx, teatime.APIKey{Key: gl.APIKey}))

	first, err := client.RequestJSON(ctx, http.MethodGet, teatime.Rel("projects"), nil)
	require.NoError(t, err)

	second, err := client.RequestJSON(ctx, http.MethodGet, teatime.Rel("projects"), nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, gl.Log.Count(http.MethodGet, "/api/v4/projects"))

	resp, err := client.Do(ctx, teatime.NewRequest(http.MethodPost, teatime.Rel("projects")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	_, err = client.RequestJSON(ctx, http.MethodGet, teatime.Rel("projects"), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, gl.Log.Count(http.MethodGet, "/api/v4/projects"),
		"a write must invalidate the cached read")
}

// TestCLIWorkflow_LoginAndGet drives the CLI commands in process: login with
// an API key persists the session, and get issues an authenticated request
// printing JSON to stdout.
func TestCLIWorkflow_LoginAndGet(t *testing.T) {
	gl := StartFakeGitLab(t)

	ResetViper(t)
	viper.Set("vendor", "gitlab")
	viper.Set("api", gl.Endpoint())
	viper.Set("output", "json")

	login := commands.NewLoginCommand()
	login.SetArgs([]string{"--name", "ci", "--api-key", gl.APIKey})

	loginOut, loginErr := CaptureStdout(t, login.Execute)
	require.NoError(t, loginErr)
	assert.Contains(t, loginOut, "Logged in")

	// The session token landed in the config file.
	raw, err := os.ReadFile(viper.ConfigFileUsed())
	require.NoError(t, err)
	assert.Contains(t, string(raw), gl.APIKey)

	get := commands.NewGetCommand()
	get.SetArgs([]string{"user", "--name", "ci"})

	out, runErr := CaptureStdout(t, get.Execute)
	require.NoError(t, runErr)
	AssertJSONOutput(t, out)
	assert.Contains(t, out, gl.Username)

	record, ok := gl.Log.Last(http.MethodGet, "/api/v4/user")
	require.True(t, ok)
	assert.Equal(t, gl.APIKey, record.Header.Get("PRIVATE-TOKEN"))
}

// TestCLIWorkflow_PaginatedListing drives the pages command in process and
// checks the merged output preserves server traversal order.
func TestCLIWorkflow_PaginatedListing(t *testing.T) {
	gl := StartFakeGitLab(t)

	ResetViper(t)
	viper.Set("vendor", "gitlab")
	viper.Set("api", gl.Endpoint())
	viper.Set("output", "json")

	login := commands.NewLoginCommand()
	login.SetArgs([]string{"--api-key", gl.APIKey})

	_, loginErr := CaptureStdout(t, login.Execute)
	require.NoError(t, loginErr)

	pages := commands.NewPagesCommand()
	pages.SetArgs([]string{"projects"})

	out, runErr := CaptureStdout(t, pages.Execute)
	require.NoError(t, runErr)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 6)
	assert.Equal(t, "acme/app-1", items[0]["path_with_namespace"])
	assert.Equal(t, "acme/app-6", items[5]["path_with_namespace"])
	assert.Equal(t, 3, gl.Log.Count(http.MethodGet, "/api/v4/projects"))
}
