// Package preview serves a directory of Markdown over HTTP for local
// editing, rendering pages through the engine and reloading connected
// browsers when files change.
package preview

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	commonmark "git.home.luguber.info/inful/commonmark"
	"git.home.luguber.info/inful/commonmark/internal/frontmatter"
)

// Config holds preview server settings.
type Config struct {
	Host       string
	Port       int
	RootDir    string
	LiveReload bool
}

// Server serves rendered Markdown from a directory tree.
type Server struct {
	cfg     Config
	mux     *http.ServeMux
	lr      *LiveReload
	metrics *Metrics
	opts    *commonmark.Options
}

// NewServer validates the root directory and wires up routes.
func NewServer(cfg Config) (*Server, error) {
	abs, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root dir: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root dir: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", abs)
	}
	cfg.RootDir = abs

	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		metrics: NewMetrics(nil),
		opts:    renderOptions(),
	}

	if cfg.LiveReload {
		lr, err := NewLiveReload(cfg.RootDir)
		if err != nil {
			return nil, fmt.Errorf("init livereload: %w", err)
		}
		if err := lr.Start(); err != nil {
			return nil, fmt.Errorf("start livereload: %w", err)
		}
		s.lr = lr
		s.mux.Handle("/livereload", lr)
	}
	s.mux.Handle("/metrics", s.metrics.Handler())
	s.mux.HandleFunc("/", s.handleRequest)
	return s, nil
}

// renderOptions is the preview rendering profile: all extensions on,
// header anchors, raw HTML omitted.
func renderOptions() *commonmark.Options {
	idPrefix := ""
	fmDelim := frontmatter.DefaultDelimiter
	opts := &commonmark.Options{}
	opts.Extension.Strikethrough = true
	opts.Extension.Tagfilter = true
	opts.Extension.Table = true
	opts.Extension.Autolink = true
	opts.Extension.Tasklist = true
	opts.Extension.Footnotes = true
	opts.Extension.HeaderIDs = &idPrefix
	opts.Extension.FrontMatterDelimiter = &fmDelim
	return opts
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("preview server listening", "addr", srv.Addr, "root", s.cfg.RootDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		s.stopLiveReload()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("preview server shutdown error", "error", err)
	}
	s.stopLiveReload()
	return <-errCh
}

func (s *Server) stopLiveReload() {
	if s.lr != nil {
		s.lr.Stop()
	}
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	requestPath := strings.TrimPrefix(r.URL.Path, "/")
	target := filepath.Join(s.cfg.RootDir, filepath.FromSlash(requestPath))

	if requestPath != "" && !s.isValidPath(target) {
		http.Error(w, "invalid path", http.StatusForbidden)
		return
	}

	if fi, err := os.Stat(target); err == nil && fi.IsDir() {
		if requestPath != "" && !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		s.handleIndex(w, r, target)
		return
	}

	switch {
	case strings.EqualFold(filepath.Ext(target), ".md"):
		s.handleMarkdown(w, r, target)
	case filepath.Ext(target) == "":
		if _, err := os.Stat(target + ".md"); err == nil {
			s.handleMarkdown(w, r, target+".md")
			return
		}
		http.NotFound(w, r)
	default:
		s.handleStatic(w, r, target)
	}
}

func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request, path string) {
	start := time.Now()
	src, err := os.ReadFile(path)
	if err != nil {
		s.metrics.PageRendered("missing", 0)
		http.NotFound(w, r)
		return
	}

	body, err := commonmark.ToHTML(src, s.opts)
	if err != nil {
		s.metrics.PageRendered("error", 0)
		slog.Error("render failed", "path", path, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	s.metrics.PageRendered("ok", time.Since(start).Seconds())

	title := pageTitle(src, filepath.Base(path))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = pageTemplate.Execute(w, pageData{
		Title:      title,
		Content:    template.HTML(body),
		LiveReload: s.lr != nil,
	})
	if err != nil {
		slog.Debug("page template write failed", "error", err)
	}
}

// pageTitle prefers the front matter title, then the first ATX heading,
// then the file name.
func pageTitle(src []byte, fallback string) string {
	block, body, had, err := frontmatter.Split(src, frontmatter.DefaultDelimiter)
	if err == nil && had {
		if meta, err := frontmatter.Decode(block); err == nil && meta.Title != "" {
			return meta.Title
		}
		src = body
	}
	for _, line := range strings.Split(string(src), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return fallback
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		http.Error(w, "read directory failed", http.StatusInternalServerError)
		return
	}

	var items []indexEntry
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			items = append(items, indexEntry{Name: name + "/", Href: name + "/"})
		} else if strings.EqualFold(filepath.Ext(name), ".md") {
			items = append(items, indexEntry{Name: name, Href: name})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = indexTemplate.Execute(w, indexData{
		Path:       r.URL.Path,
		Entries:    items,
		LiveReload: s.lr != nil,
	})
	if err != nil {
		slog.Debug("index template write failed", "error", err)
	}
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request, path string) {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

// isValidPath rejects paths that escape the root directory.
func (s *Server) isValidPath(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.cfg.RootDir, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

type pageData struct {
	Title      string
	Content    template.HTML
	LiveReload bool
}

type indexEntry struct {
	Name string
	Href string
}

type indexData struct {
	Path       string
	Entries    []indexEntry
	LiveReload bool
}

const reloadScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/livereload");
  ws.onmessage = function () { location.reload(); };
})();
</script>`

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { max-width: 48rem; margin: 2rem auto; padding: 0 1rem; font-family: sans-serif; line-height: 1.5; }
pre { background: #f6f8fa; padding: 1em; overflow-x: auto; }
code { font-family: monospace; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.6em; }
blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1em; color: #555; }
</style>
</head>
<body>
{{.Content}}{{if .LiveReload}}
` + reloadScript + `{{end}}
</body>
</html>
`))

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Path}}</title>
</head>
<body>
<h1>{{.Path}}</h1>
<ul>
{{range .Entries}}<li><a href="{{.Href}}">{{.Name}}</a></li>
{{end}}</ul>{{if .LiveReload}}
` + reloadScript + `{{end}}
</body>
</html>
`))
