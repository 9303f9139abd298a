package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/net/html"

	"github.com/njreid/redstone/pkg/clientjs"
	"github.com/njreid/redstone/pkg/redstone"
)

const reloadPath = "/__redstone/reload"

const reloadScript = `<script>
(function () {
	var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "` + reloadPath + `");
	ws.onmessage = function (e) { if (e.data === "reload") { location.reload(); } };
})();
</script>
`

// devServer compiles one document in memory, serves the result and tells
// open pages to reload when the document changes.
type devServer struct {
	compiler *redstone.Compiler
	path     string
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	source  string
	page    string
	lastErr error
	clients map[*websocket.Conn]struct{}
}

func newDevServer(c *redstone.Compiler, path string, logger *log.Logger) *devServer {
	return &devServer{
		compiler: c,
		path:     path,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// reload recompiles the document if its content changed since the last
// call. A failed compile is kept and shown in place of the page.
func (s *devServer) reload() (changed bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false, err
	}
	src := string(data)

	s.mu.RLock()
	same := src == s.source && (s.page != "" || s.lastErr != nil)
	s.mu.RUnlock()
	if same {
		return false, nil
	}

	res, err := s.compiler.Generate(src)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
	s.lastErr = err
	if err == nil {
		s.page = injectReload(res.Client)
	}
	return true, err
}

func injectReload(page string) string {
	if i := strings.LastIndex(page, "</body>"); i >= 0 {
		return page[:i] + reloadScript + page[i:]
	}
	return page + reloadScript
}

// watch polls the document until ctx is done and broadcasts a reload after
// every change.
func (s *devServer) watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := s.reload()
			if err != nil {
				s.logger.Printf("Compile failed: %s: %v", s.path, err)
			}
			if changed {
				s.broadcast("reload")
			}
		}
	}
}

func (s *devServer) broadcast(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func (s *devServer) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Routes returns the dev server's handler.
func (s *devServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/index.html", s.handlePage)
	r.Get(reloadPath, s.handleReload)

	scripts, err := fs.Sub(clientjs.FS(), "js")
	if err != nil {
		panic(err)
	}
	for _, name := range clientjs.Names() {
		r.Get("/"+name, http.StripPrefix("/js", http.FileServer(http.FS(scripts))).ServeHTTP)
	}

	// Everything else comes from the document's directory, so pages can load
	// local copies of jQuery and Ractive.
	FileServer(r, "/", http.Dir(filepath.Dir(s.path)))
	return r
}

func (s *devServer) handlePage(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	page, err := s.page, s.lastErr
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<body>\n<h1>Compile failed</h1>\n<pre>%s</pre>\n%s</body>\n</html>",
			html.EscapeString(err.Error()), reloadScript)
		return
	}
	io.WriteString(w, page)
}

func (s *devServer) handleReload(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("reload socket: %v", err)
		return
	}
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit any URL parameters.")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		h := http.StripPrefix(pathPrefix, http.FileServer(root))
		h.ServeHTTP(w, r)
	})
}

func serve(addr string, s *devServer, stdout io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := s.reload(); err != nil {
		s.logger.Printf("Compile failed: %s: %v", s.path, err)
	}
	go s.watch(ctx, 500*time.Millisecond)

	srv := &http.Server{Addr: addr, Handler: s.Routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(stdout, "Serving %s on http://%s\n", s.path, addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Printf("Server failed: %v", err)
		return 1
	}
	return 0
}
