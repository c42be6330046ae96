package preview

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// The preview server binds to localhost; any page it served may
	// open the reload socket.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveReload watches a directory tree and tells connected browsers to
// reload when a Markdown file changes.
type LiveReload struct {
	rootDir string
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	broadcast chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewLiveReload(rootDir string) (*LiveReload, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &LiveReload{
		rootDir:   rootDir,
		watcher:   watcher,
		clients:   map[*websocket.Conn]struct{}{},
		broadcast: make(chan struct{}, 16),
		stop:      make(chan struct{}),
	}, nil
}

// Start begins watching and broadcasting.
func (lr *LiveReload) Start() error {
	if err := addDirsRecursive(lr.watcher, lr.rootDir); err != nil {
		return err
	}
	go lr.watchLoop()
	go lr.broadcastLoop()
	return nil
}

// Stop closes the watcher and disconnects all clients.
func (lr *LiveReload) Stop() {
	lr.stopOnce.Do(func() {
		close(lr.stop)
		_ = lr.watcher.Close()

		lr.mu.Lock()
		for conn := range lr.clients {
			_ = conn.Close()
		}
		lr.clients = map[*websocket.Conn]struct{}{}
		lr.mu.Unlock()
	})
}

func (lr *LiveReload) watchLoop() {
	for {
		select {
		case ev, ok := <-lr.watcher.Events:
			if !ok {
				return
			}
			lr.handleEvent(ev)
		case err, ok := <-lr.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("livereload watcher error", "error", err)
		case <-lr.stop:
			return
		}
	}
}

func (lr *LiveReload) handleEvent(ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(lr.watcher, ev.Name)
			return
		}
	}
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !strings.EqualFold(filepath.Ext(ev.Name), ".md") {
		return
	}
	slog.Debug("file change detected", "path", ev.Name, "op", ev.Op.String())
	select {
	case lr.broadcast <- struct{}{}:
	default:
	}
}

func (lr *LiveReload) broadcastLoop() {
	for {
		select {
		case <-lr.broadcast:
			lr.mu.Lock()
			for conn := range lr.clients {
				if err := conn.WriteMessage(websocket.TextMessage, []byte("reload")); err != nil {
					slog.Debug("livereload client write failed", "error", err)
					delete(lr.clients, conn)
					_ = conn.Close()
				}
			}
			lr.mu.Unlock()
		case <-lr.stop:
			return
		}
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the
// client goes away.
func (lr *LiveReload) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("livereload upgrade failed", "error", err)
		return
	}

	lr.mu.Lock()
	lr.clients[conn] = struct{}{}
	total := len(lr.clients)
	lr.mu.Unlock()
	slog.Debug("livereload client connected", "clients", total)

	go func() {
		defer func() {
			lr.mu.Lock()
			delete(lr.clients, conn)
			lr.mu.Unlock()
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(filepath.Base(path), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			slog.Warn("watch add failed", "dir", path, "error", err)
		}
		return nil
	})
}

// shouldIgnoreEvent reports filesystem events that should not trigger a
// reload.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	// Editor temp and swap files.
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	if base == ".DS_Store" || base == "Thumbs.db" {
		return true
	}

	return false
}
