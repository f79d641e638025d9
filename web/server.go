// ABOUTME: Web UI server with embedded templates
// ABOUTME: Serves the board, deal pages and the notification feed at localhost:8080
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/dealboard/catalog"
	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
	"github.com/harperreed/dealboard/viz"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Server struct {
	deals     *store.DealStore
	feed      *store.NotificationStore
	gate      func() bool
	logger    *log.Logger
	templates *template.Template
	generator *viz.GraphGenerator
	now       func() time.Time
}

// NewServer parses the templates. gate reports whether changes are allowed; nil allows all.
func NewServer(deals *store.DealStore, feed *store.NotificationStore, gate func() bool, logger *log.Logger) (*Server, error) {
	// Helper functions for templates
	funcMap := template.FuncMap{
		"money": func(v float64) string {
			return fmt.Sprintf("$%.2f", v)
		},
		"stageName": func(id models.StageID) string {
			if st, err := catalog.StageInfo(id); err == nil {
				return st.Name
			}
			return string(id)
		},
		"pipelineName": func(id models.PipelineID) string {
			if p, err := catalog.PipelineInfo(id); err == nil {
				return p.Name
			}
			return string(id)
		},
		"when": func(t time.Time) string {
			return t.Format("Jan 02 2006 15:04")
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		deals:     deals,
		feed:      feed,
		gate:      gate,
		logger:    logger,
		templates: tmpl,
		generator: viz.NewGraphGenerator(deals),
		now:       time.Now,
	}, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleBoard)
	mux.HandleFunc("GET /deals/{id}", s.handleDeal)
	mux.HandleFunc("POST /deals/{id}/move", s.handleMove)
	mux.HandleFunc("GET /graph", s.handleGraph)
	mux.HandleFunc("GET /notifications", s.handleNotifications)
	mux.HandleFunc("POST /notifications/read", s.handleMarkRead)
	return mux
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", "url", "http://localhost"+addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template error", "template", name, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeError maps store errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusForbidden
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	board := store.BuildBoard(store.Search(s.deals.Deals(), query))

	data := map[string]any{
		"Title":  "Board",
		"Query":  query,
		"Board":  board,
		"Stats":  viz.GenerateDashboardStats(s.deals.Board(), s.feed.UnreadCount(), s.now()),
		"Unread": s.feed.UnreadCount(),
	}
	s.renderTemplate(w, "board.html", data)
}

func (s *Server) handleDeal(w http.ResponseWriter, r *http.Request) {
	deal, err := s.deals.Deal(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	data := map[string]any{
		"Title":  deal.Name,
		"Deal":   deal,
		"Stages": catalog.Stages(),
		"Unread": s.feed.UnreadCount(),
	}
	s.renderTemplate(w, "deal.html", data)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if s.gate != nil && !s.gate() {
		s.writeError(w, models.ErrUnauthorized)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	deal, err := s.deals.MoveDeal(id, models.StageID(r.PostFormValue("stage")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("deal moved from web", "deal_id", deal.ID, "stage", deal.Stage)
	http.Redirect(w, r, "/deals/"+deal.ID, http.StatusSeeOther)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	var (
		dot string
		err error
	)
	if id := r.URL.Query().Get("deal"); id != "" {
		dot, err = s.generator.GenerateDealGraph(r.Context(), id)
	} else {
		dot, err = s.generator.GeneratePipelineGraph(r.Context())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	data := map[string]any{
		"Title":  "Graph",
		"DOT":    dot,
		"Unread": s.feed.UnreadCount(),
	}
	s.renderTemplate(w, "graph.html", data)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title":         "Notifications",
		"Notifications": s.feed.Notifications(),
		"Unread":        s.feed.UnreadCount(),
	}
	s.renderTemplate(w, "notifications.html", data)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if s.gate != nil && !s.gate() {
		s.writeError(w, models.ErrUnauthorized)
		return
	}
	s.feed.MarkAsRead()
	http.Redirect(w, r, "/notifications", http.StatusSeeOther)
}
