package preview

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, root string) *Server {
	t.Helper()
	s, err := NewServer(Config{Host: "127.0.0.1", Port: 0, RootDir: root})
	require.NoError(t, err)
	return s
}

func TestNewServer_MissingRoot_ReturnsError(t *testing.T) {
	_, err := NewServer(Config{RootDir: filepath.Join(t.TempDir(), "does-not-exist")})
	require.Error(t, err)
}

func TestNewServer_RootIsFile_ReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.md")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))

	_, err := NewServer(Config{RootDir: path})
	require.Error(t, err)
}

func TestHandleRequest_MarkdownFile_RendersHTMLPage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.md"),
		[]byte("# Hello\n\nSome ~~old~~ new text.\n"), 0o644))
	s := newTestServer(t, root)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page.md", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "<title>Hello</title>")
	require.Contains(t, rec.Body.String(), "<del>old</del>")
}

func TestHandleRequest_ExtensionlessPath_ServesMatchingMarkdown(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"),
		[]byte("# Notes\n"), 0o644))
	s := newTestServer(t, root)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Notes</h1>")
}

func TestHandleRequest_RawHTMLInput_IsOmitted(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "evil.md"),
		[]byte("<script>alert(1)</script>\n"), 0o644))
	s := newTestServer(t, root)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/evil.md", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "alert(1)")
	require.Contains(t, rec.Body.String(), "raw HTML omitted")
}

func TestHandleRequest_DirectoryIndex_ListsMarkdownFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.md"), []byte("b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.txt"), []byte("x\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	s := newTestServer(t, root)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `<a href="a.md">`)
	require.Contains(t, body, `<a href="b.md">`)
	require.Contains(t, body, `<a href="sub/">`)
	require.NotContains(t, body, "skip.txt")
}

func TestHandleRequest_PathTraversal_IsRejected(t *testing.T) {
	root := t.TempDir()
	s := newTestServer(t, root)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.URL.Path = "/../secret.md"
	rec := httptest.NewRecorder()
	s.handleRequest(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleRequest_MetricsEndpoint_Serves(t *testing.T) {
	root := t.TempDir()
	s := newTestServer(t, root)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPageTitle_PrefersFrontMatterThenHeading(t *testing.T) {
	require.Equal(t, "Front", pageTitle([]byte("---\ntitle: Front\n---\n# Head\n"), "f"))
	require.Equal(t, "Head", pageTitle([]byte("# Head\n\ntext\n"), "f"))
	require.Equal(t, "f", pageTitle([]byte("plain text\n"), "f"))
}

func TestShouldIgnoreEvent(t *testing.T) {
	require.True(t, shouldIgnoreEvent("/tmp/.hidden.md"))
	require.True(t, shouldIgnoreEvent("/tmp/#foo#"))
	require.True(t, shouldIgnoreEvent("/tmp/foo.swp"))
	require.True(t, shouldIgnoreEvent("/tmp/.DS_Store"))
	require.False(t, shouldIgnoreEvent("/tmp/visible.md"))
}
