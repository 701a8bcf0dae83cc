//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/viper"
)

// verboseEnabled reports whether TEATIME_VERBOSE=true is set, which turns on
// per-request logging for the fake vendor servers.
func verboseEnabled() bool {
	return os.Getenv("TEATIME_VERBOSE") == "true"
}

// RequestRecord captures one request a fake vendor server handled.
type RequestRecord struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// RequestLog records every request a fake vendor server sees so tests can
// assert on call counts, ordering, and headers.
type RequestLog struct {
	mu      sync.Mutex
	records []RequestRecord
}

// Len returns the total number of recorded requests.
func (l *RequestLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Count returns how many recorded requests match the method and path.
func (l *RequestLog) Count(method, path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, record := range l.records {
		if record.Method == method && record.Path == path {
			count++
		}
	}
	return count
}

// Last returns the most recent recorded request for the method and path.
func (l *RequestLog) Last(method, path string) (RequestRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].Method == method && l.records[i].Path == path {
			return l.records[i], true
		}
	}
	return RequestRecord{}, false
}

func (l *RequestLog) add(record RequestRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
}

// recording wraps a handler so every request lands in the log before the
// fake vendor logic sees it. Bodies are restored after reading.
func recording(t *testing.T, log *RequestLog, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading request body: %v", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		log.add(RequestRecord{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})

		if verboseEnabled() {
			t.Logf("fake vendor: %s %s", r.Method, r.URL.String())
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// FakeGitLab simulates the slice of the GitLab REST API the workflow tests
// exercise: the OAuth password grant at the server origin, the current-user
// endpoint, and a paginated project listing with Link headers.
type FakeGitLab struct {
	Server *httptest.Server
	Log    *RequestLog

	Username string
	Password string
	APIKey   string

	mu            sync.Mutex
	issued        []string
	failRemaining int
}

// StartFakeGitLab starts a fake GitLab server that shuts down with the test.
func StartFakeGitLab(t *testing.T) *FakeGitLab {
	t.Helper()

	f := &FakeGitLab{
		Log:      &RequestLog{},
		Username: "wanda",
		Password: "correct-horse-battery",
		APIKey:   "glpat-workflow-test",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", f.handleToken)
	mux.HandleFunc("/api/v4/user", f.authenticated(f.handleUser))
	mux.HandleFunc("/api/v4/projects", f.authenticated(f.handleProjects))

	f.Server = httptest.NewServer(recording(t, f.Log, mux))
	t.Cleanup(f.Server.Close)

	return f
}

// Endpoint returns the API base URL clients should target.
func (f *FakeGitLab) Endpoint() string {
	return f.Server.URL + "/api/v4"
}

// IssuedTokens returns the bearer tokens handed out by the password grant,
// oldest first.
func (f *FakeGitLab) IssuedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.issued...)
}

// FailNext makes the server answer the next n API requests with 503 before
// recovering, for retry behavior tests. The grant endpoint is not affected.
func (f *FakeGitLab) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRemaining = n
}

func (f *FakeGitLab) takeFailure() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemaining == 0 {
		return false
	}
	f.failRemaining--
	return true
}

func (f *FakeGitLab) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "invalid_request"})
		return
	}

	var grant struct {
		GrantType string `json:"grant_type"`
		Username  string `json:"username"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&grant); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}

	if grant.GrantType != "password" || grant.Username != f.Username || grant.Password != f.Password {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "The provided authorization grant is invalid.",
		})
		return
	}

	f.mu.Lock()
	token := fmt.Sprintf("gitlab-grant-%d", len(f.issued)+1)
	f.issued = append(f.issued, token)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   7200,
	})
}

func (f *FakeGitLab) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.takeFailure() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"message": "503 Service Unavailable"})
			return
		}

		if r.Header.Get("PRIVATE-TOKEN") == f.APIKey {
			next(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") && f.tokenIssued(strings.TrimPrefix(auth, "Bearer ")) {
			next(w, r)
			return
		}

		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "401 Unauthorized"})
	}
}

func (f *FakeGitLab) tokenIssued(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, issued := range f.issued {
		if issued == token {
			return true
		}
	}
	return false
}

func (f *FakeGitLab) handleUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       7,
		"username": f.Username,
		"is_admin": false,
	})
}

const projectPages = 3

func (f *FakeGitLab) handleProjects(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":                  99,
			"path_with_namespace": "acme/app-99",
		})
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page = n
		}
	}

	pageURL := func(n int) string {
		return fmt.Sprintf("%s/api/v4/projects?page=%d", f.Server.URL, n)
	}

	var relations []string
	if page < projectPages {
		relations = append(relations, fmt.Sprintf("<%s>; rel=\"next\"", pageURL(page+1)))
	}
	relations = append(relations, fmt.Sprintf("<%s>; rel=\"last\"", pageURL(projectPages)))
	w.Header().Set("Link", strings.Join(relations, ", "))

	start := (page-1)*2 + 1
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": start, "path_with_namespace": fmt.Sprintf("acme/app-%d", start)},
		{"id": start + 1, "path_with_namespace": fmt.Sprintf("acme/app-%d", start+1)},
	})
}

// FakeVault simulates the slice of the Vault HTTP API the workflow tests
// exercise: the LDAP login backend and an authenticated secret listing.
// The listing deliberately carries a Link header; Vault clients must not
// follow it.
type FakeVault struct {
	Server *httptest.Server
	Log    *RequestLog

	Username string
	Password string
	Passcode string
	Token    string
}

// StartFakeVault starts a fake Vault server that shuts down with the test.
func StartFakeVault(t *testing.T) *FakeVault {
	t.Helper()

	f := &FakeVault{
		Log:      &RequestLog{},
		Username: "margaret",
		Password: "sturdy-passphrase",
		Passcode: "123456",
		Token:    "hvs.workflow-test",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/ldap/login/", f.handleLogin)
	mux.HandleFunc("/v1/secret/metadata", f.authenticated(f.handleList))

	f.Server = httptest.NewServer(recording(t, f.Log, mux))
	t.Cleanup(f.Server.Close)

	return f
}

func (f *FakeVault) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"errors": []string{"unsupported operation"}})
		return
	}

	username := strings.TrimPrefix(r.URL.Path, "/v1/auth/ldap/login/")

	var body struct {
		Password string `json:"password"`
		Passcode string `json:"passcode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"invalid request body"}})
		return
	}

	if username != f.Username || body.Password != f.Password {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"ldap operation failed"}})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"auth": map[string]any{
			"client_token":   f.Token,
			"lease_duration": 900,
			"renewable":      true,
		},
	})
}

func (f *FakeVault) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != f.Token {
			writeJSON(w, http.StatusForbidden, map[string]any{"errors": []string{"permission denied"}})
			return
		}
		next(w, r)
	}
}

func (f *FakeVault) handleList(w http.ResponseWriter, r *http.Request) {
	// Vault listings are complete in one response; a client that followed
	// this relation would loop forever.
	w.Header().Set("Link", fmt.Sprintf("<%s/v1/secret/metadata?page=2>; rel=\"next\"", f.Server.URL))
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"keys": []string{"ci", "registry", "runners"},
		},
	})
}

// FakeSensu simulates a classic Sensu Core API: unauthenticated, with a flat
// event listing and no pagination relations.
type FakeSensu struct {
	Server *httptest.Server
	Log    *RequestLog
}

// StartFakeSensu starts a fake Sensu server that shuts down with the test.
func StartFakeSensu(t *testing.T) *FakeSensu {
	t.Helper()

	f := &FakeSensu{Log: &RequestLog{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/events", f.handleEvents)

	f.Server = httptest.NewServer(recording(t, f.Log, mux))
	t.Cleanup(f.Server.Close)

	return f
}

func (f *FakeSensu) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"client": "web-1", "check": "keepalive", "status": 0},
		{"client": "web-2", "check": "disk-usage", "status": 1},
		{"client": "db-1", "check": "keepalive", "status": 0},
	})
}

// ResetViper isolates a test from global CLI state: flag values are cleared
// and the config file is redirected to a throwaway path.
func ResetViper(t *testing.T) {
	t.Helper()

	viper.Reset()
	viper.SetConfigFile(filepath.Join(t.TempDir(), "config.yml"))

	t.Cleanup(viper.Reset)
}

// CaptureStdout runs fn while intercepting process stdout and returns what
// was written along with fn's error. Command output rendering writes to
// os.Stdout so piped output stays clean; tests capture it here.
func CaptureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating stdout pipe: %v", err)
	}

	original := os.Stdout
	os.Stdout = writer
	defer func() { os.Stdout = original }()

	fnErr := fn()

	if err := writer.Close(); err != nil {
		t.Fatalf("closing stdout pipe: %v", err)
	}
	os.Stdout = original

	captured, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}

	return string(captured), fnErr
}

// AssertJSONOutput verifies command output looks like a JSON document.
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	output = strings.TrimSpace(output)
	if !strings.HasPrefix(output, "{") && !strings.HasPrefix(output, "[") {
		t.Errorf("output does not appear to be JSON: %s", output)
	}
}
