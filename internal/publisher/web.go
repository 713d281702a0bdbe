package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
	"github.com/ryosukesatoh/daily-arxiv/internal/logging"
)

// WebPublisher serves the latest report of each kind as an HTML page.
// "/" shows the latest report of any kind; "/daily", "/weekly" and
// "/monthly" show the latest of that kind.
type WebPublisher struct {
	addr   string
	server *http.Server
	logger *slog.Logger

	mu     sync.RWMutex
	latest *digest.Report
	byKind map[digest.Kind]*digest.Report
}

func NewWebPublisher(addr string, logger *slog.Logger) *WebPublisher {
	wp := &WebPublisher{
		addr:   addr,
		logger: logging.OrDiscard(logger).With("component", "web"),
		byKind: make(map[digest.Kind]*digest.Report),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", wp.handleIndex)
	mux.HandleFunc("GET /{kind}", wp.handleKind)
	mux.HandleFunc("GET /markdown", wp.handleMarkdown)
	wp.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return wp
}

// Start begins serving HTTP in the background. Call Shutdown to stop.
func (wp *WebPublisher) Start() error {
	ln, err := net.Listen("tcp", wp.addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", wp.addr, err)
	}
	go func() {
		wp.logger.Info("web publisher listening", "addr", ln.Addr().String())
		if err := wp.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wp.logger.Error("web publisher stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (wp *WebPublisher) Shutdown(ctx context.Context) error {
	return wp.server.Shutdown(ctx)
}

func (wp *WebPublisher) Name() string { return "web" }

func (wp *WebPublisher) Publish(_ context.Context, report *digest.Report) (string, error) {
	wp.mu.Lock()
	wp.latest = report
	wp.byKind[report.Kind] = report
	wp.mu.Unlock()
	wp.logger.Info("web publisher updated", "title", report.Title())
	return "/" + string(report.Kind), nil
}

func (wp *WebPublisher) handleIndex(w http.ResponseWriter, r *http.Request) {
	wp.mu.RLock()
	report := wp.latest
	wp.mu.RUnlock()
	writeReport(w, report)
}

func (wp *WebPublisher) handleKind(w http.ResponseWriter, r *http.Request) {
	kind, err := digest.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	wp.mu.RLock()
	report := wp.byKind[kind]
	wp.mu.RUnlock()
	writeReport(w, report)
}

func (wp *WebPublisher) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	wp.mu.RLock()
	report := wp.latest
	wp.mu.RUnlock()
	if report == nil {
		http.Error(w, "no report available yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, report.Markdown())
}

func writeReport(w http.ResponseWriter, report *digest.Report) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if report == nil {
		fmt.Fprint(w, `<!DOCTYPE html><html><body><h1>Daily arXiv</h1><p>No report available yet. Check back later.</p></body></html>`)
		return
	}
	fmt.Fprint(w, report.HTMLPage())
}
