package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/shutter/internal/tokenstore"
)

type fakeService struct {
	mu    sync.Mutex
	likes []string
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /photos", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `[{"id":"p1","likes":3,"liked_by_user":true,"description":"Harbour at dusk","user":{"username":"ann"}},
				{"id":"p2","likes":0,"user":{"username":"bob"}}]`)
		case "2":
			fmt.Fprint(w, `[{"id":"p2","likes":0},{"id":"p3","likes":7,"created_at":"2024-05-01T10:00:00Z"}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	})
	like := func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.likes = append(f.likes, r.Method+" "+r.PathValue("id"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}
	mux.HandleFunc("POST /photos/{id}/like", like)
	mux.HandleFunc("DELETE /photos/{id}/like", like)
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"username":"ann","first_name":"Ann","last_name":"Lee","bio":"Boats."}`)
	})
	mux.HandleFunc("GET /users/ann", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"profile_image":{"small":"https://img.example/ann"}}`)
	})
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh-token","token_type":"bearer"}`)
	})
	return mux
}

type env struct {
	configPath string
	tokenDir   string
	logFile    string
	service    *fakeService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SHUTTER_CLIENT_ID", "")
	t.Setenv("SHUTTER_CLIENT_SECRET", "")

	svc := &fakeService{}
	srv := httptest.NewServer(svc.handler())
	t.Cleanup(srv.Close)

	e := &env{
		configPath: filepath.Join(home, "config.toml"),
		tokenDir:   filepath.Join(home, "data"),
		logFile:    filepath.Join(home, "shutter.log"),
		service:    svc,
	}
	cfg := fmt.Sprintf(`api_base = %q
auth_base = %q
client_id = "id"
client_secret = "secret"
requests_per_hour = 0
log_file = %q

[token_store]
backend = "file"
dir = %q
`, srv.URL, srv.URL, e.logFile, e.tokenDir)
	require.NoError(t, os.WriteFile(e.configPath, []byte(cfg), 0o600))
	return e
}

func (e *env) signIn(t *testing.T) {
	t.Helper()
	store, err := tokenstore.NewFileStore(e.tokenDir)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), "stored-token"))
}

func (e *env) token(t *testing.T) string {
	t.Helper()
	store, err := tokenstore.NewFileStore(e.tokenDir)
	require.NoError(t, err)
	tok, err := store.Get(context.Background())
	if err != nil {
		return ""
	}
	return tok
}

func execute(t *testing.T, e *env, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if stdin != "" {
		cmd.SetIn(strings.NewReader(stdin))
	}
	if e != nil {
		args = append(args, "--config", e.configPath)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	SetBuildInfo("1.2.3", "abc", "")
	out, err := execute(t, nil, "", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\n", out)

	out, err = execute(t, nil, "", "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "abc", info["commit"])
}

func TestFeed_PrintsMergedPages(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)

	out, err := execute(t, e, "", "feed", "--pages", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "p1")
	assert.Contains(t, out, "Harbour at dusk")
	assert.Contains(t, out, "p3")
	assert.Equal(t, 1, strings.Count(out, "p2"), "duplicates are merged")
}

func TestFeed_RequiresSignIn(t *testing.T) {
	e := newEnv(t)
	_, err := execute(t, e, "", "feed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}

func TestFeed_RejectsZeroPages(t *testing.T) {
	e := newEnv(t)
	_, err := execute(t, e, "", "feed", "--pages", "0")
	require.Error(t, err)
}

func TestLikeAndUnlike(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)

	out, err := execute(t, e, "", "like", "p9")
	require.NoError(t, err)
	assert.Contains(t, out, "Liked p9.")

	_, err = execute(t, e, "", "unlike", "p9")
	require.NoError(t, err)
	assert.Equal(t, []string{"POST p9", "DELETE p9"}, e.service.likes)
}

func TestLogin_WithCodeFlag(t *testing.T) {
	e := newEnv(t)

	out, err := execute(t, e, "", "login", "--code", "good")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as @ann.")
	assert.Equal(t, "fresh-token", e.token(t))
}

func TestLogin_PastedCallbackURL(t *testing.T) {
	e := newEnv(t)

	out, err := execute(t, e, "https://example.com/elsewhere?code=good\n", "login")
	require.Error(t, err, "a non-callback paste is rejected")
	assert.Contains(t, out, "/oauth/authorize?")

	_, err = execute(t, e, "http://localhost/oauth/authorize/native?code=good\n", "login")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", e.token(t))
}

func TestLogin_BadCodeKeepsSignedOut(t *testing.T) {
	e := newEnv(t)

	_, err := execute(t, e, "", "login", "--code", "bad")
	require.Error(t, err)
	assert.Empty(t, e.token(t))
}

func TestLogout_ClearsToken(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)

	out, err := execute(t, e, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")
	assert.Empty(t, e.token(t))
}

func TestProfile(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)

	out, err := execute(t, e, "", "profile")
	require.NoError(t, err)
	assert.Contains(t, out, "Ann Lee")
	assert.Contains(t, out, "@ann")
	assert.Contains(t, out, "https://img.example/ann")
}

func TestLogs_ShowsTail(t *testing.T) {
	e := newEnv(t)
	records := []string{
		`{"time":"2024-05-01T10:00:00Z","level":"INFO","msg":"first"}`,
		`{"time":"2024-05-01T10:00:01Z","level":"WARN","msg":"second"}`,
		`{"time":"2024-05-01T10:00:02Z","level":"INFO","msg":"third"}`,
	}
	require.NoError(t, os.WriteFile(e.logFile, []byte(strings.Join(records, "\n")+"\n"), 0o600))

	out, err := execute(t, e, "", "logs", "-n", "2")
	require.NoError(t, err)
	assert.NotContains(t, out, "first")
	assert.Contains(t, out, "second")
	assert.Contains(t, out, "third")

	out, err = execute(t, e, "", "logs", "--raw", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, records[2]+"\n", out)
}
