// Package remotetest provides in-memory JSONBin and GitHub contents API
// servers for tests of the remote backends and their callers.
package remotetest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// BinServer is an in-memory JSONBin v3 server.
type BinServer struct {
	*httptest.Server

	mu      sync.Mutex
	key     string
	bins    map[string][]byte
	next    int
	Creates int
	Updates int
	Reads   int
}

// NewBinServer starts a fake JSONBin accepting key as X-Master-Key. The
// server is closed when the test ends.
func NewBinServer(t *testing.T, key string) *BinServer {
	t.Helper()
	f := &BinServer{key: key, bins: map[string][]byte{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *BinServer) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("X-Master-Key") != f.key {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Invalid X-Master-Key provided"}`)
		return
	}
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/b":
		body, _ := io.ReadAll(r.Body)
		f.next++
		id := fmt.Sprintf("bin%03d", f.next)
		f.bins[id] = body
		f.Creates++
		fmt.Fprintf(w, `{"record":%s,"metadata":{"id":%q,"private":true}}`, body, id)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/latest"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/b/"), "/latest")
		body, ok := f.bins[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Bin not found or it doesn't belong to your account"}`)
			return
		}
		f.Reads++
		if r.Header.Get("X-Bin-Meta") != "false" {
			fmt.Fprintf(w, `{"record":%s,"metadata":{"id":%q}}`, body, id)
			return
		}
		w.Write(body)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/b/"):
		id := strings.TrimPrefix(r.URL.Path, "/b/")
		if _, ok := f.bins[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Bin not found or it doesn't belong to your account"}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.bins[id] = body
		f.Updates++
		fmt.Fprintf(w, `{"record":%s,"metadata":{"parentId":%q}}`, body, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Bin returns the stored document of a bin, nil when it does not exist.
func (f *BinServer) Bin(id string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bins[id]
}

// SetBin stores a document directly, as another client would.
func (f *BinServer) SetBin(id string, doc []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bins[id] = doc
}

// BinCount is the number of bins held.
func (f *BinServer) BinCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bins)
}

// GitHubServer serves the subset of the GitHub contents API the git
// backend uses, for one repository. Each write gets a new SHA.
type GitHubServer struct {
	*httptest.Server

	Owner string
	Repo  string

	mu      sync.Mutex
	token   string
	files   map[string]gitFile
	shaSeq  int
	Commits int
	// BeforeWrite runs once before the next PUT is applied.
	BeforeWrite func()
}

type gitFile struct {
	sha  string
	data []byte
}

// NewGitHubServer starts a fake GitHub for owner/repo accepting token.
func NewGitHubServer(t *testing.T, token, owner, repo string) *GitHubServer {
	t.Helper()
	f := &GitHubServer{Owner: owner, Repo: repo, token: token, files: map[string]gitFile{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *GitHubServer) serve(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "token "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials"}`)
		return
	}
	prefix := "/repos/" + f.Owner + "/" + f.Repo + "/contents/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, prefix)

	switch r.Method {
	case http.MethodGet:
		f.mu.Lock()
		file, ok := f.files[path]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"sha":      file.sha,
			"content":  wrap(base64.StdEncoding.EncodeToString(file.data), 60),
			"encoding": "base64",
		})
	case http.MethodPut:
		f.mu.Lock()
		hook := f.BeforeWrite
		f.BeforeWrite = nil
		f.mu.Unlock()
		if hook != nil {
			hook()
		}
		f.put(w, r, path)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *GitHubServer) put(w http.ResponseWriter, r *http.Request, path string) {
	var req struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
		Branch  string `json:"branch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"content is not valid Base64"}`)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	current, exists := f.files[path]
	switch {
	case exists && req.SHA == "":
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"Invalid request.\n\n\"sha\" wasn't supplied."}`)
		return
	case exists && req.SHA != current.sha:
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, `{"message":"%s does not match %s"}`, path, req.SHA)
		return
	}
	f.shaSeq++
	sha := fmt.Sprintf("sha%d", f.shaSeq)
	f.files[path] = gitFile{sha: sha, data: data}
	f.Commits++
	if exists {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
	fmt.Fprintf(w, `{"content":{"path":%q,"sha":%q}}`, path, sha)
}

// WriteFile stores a file directly, as a commit from another client would.
func (f *GitHubServer) WriteFile(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shaSeq++
	f.files[path] = gitFile{sha: fmt.Sprintf("sha%d", f.shaSeq), data: data}
}

// File returns the content of a stored file, nil when absent.
func (f *GitHubServer) File(path string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[path].data
}

func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}
