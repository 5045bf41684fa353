package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/knowpilot/internal/action"
	"github.com/pavelanni/knowpilot/internal/handler/views"
	"github.com/pavelanni/knowpilot/internal/model"
	"github.com/pavelanni/knowpilot/internal/notify"
	"github.com/pavelanni/knowpilot/internal/rows"
	"github.com/pavelanni/knowpilot/internal/store"
)

// API is the backend surface used by the pages.
type API interface {
	action.ContentAPI
	action.KnowledgeAPI
	action.QuestionAPI
	AllContents(ctx context.Context) ([]model.ContentRecord, error)
	KnowledgeAll(ctx context.Context) ([]model.ContentRecord, error)
	GroupData(ctx context.Context, k int) ([]model.QuestionRecord, error)
	AvailableGroups(ctx context.Context) ([]int, error)
}

// Handler holds the page state shared by all HTTP handlers.
type Handler struct {
	notes  *notify.Manager
	config model.AppConfig

	contents  *store.Store[model.ContentRecord]
	knowledge *store.Store[model.ContentRecord]
	groups    *store.Store[int]
	groupData func(ctx context.Context, k int) ([]model.QuestionRecord, error)

	qmu       sync.Mutex
	questions map[int]*questionGroup
	qorder    []int // creation order, oldest first

	contentActs   *action.Content
	knowledgeActs *action.Knowledge
	questionActs  *action.Questions

	contentRows *rows.State
}

// autoRefreshParam marks the self-reload issued by a page's meta refresh.
// Such requests render the cached state instead of fetching again.
const autoRefreshParam = "auto"

// New creates a Handler. Nothing is fetched until Mount or a page visit.
func New(api API, notes *notify.Manager, cfg model.AppConfig) (*Handler, error) {
	if cfg.DefaultGroupSize < 1 {
		cfg.DefaultGroupSize = 1
	}
	if cfg.DefaultK < 1 {
		cfg.DefaultK = 1
	}

	h := &Handler{
		notes:       notes,
		config:      cfg,
		contents:    store.New("contents", api.AllContents),
		knowledge:   store.New("knowledge", api.KnowledgeAll),
		groups:      store.New("groups", api.AvailableGroups),
		groupData:   api.GroupData,
		questions:   make(map[int]*questionGroup),
		contentRows: rows.New(),
	}

	// Both listings carry knowledge_point, so a mutation from either page
	// reloads both of them.
	opts := []action.Option{action.WithTimeout(cfg.RequestTimeout)}
	h.contentActs = action.NewContent(api, h.reloadContents, notes, opts...)
	h.knowledgeActs = action.NewKnowledge(api, h.reloadContents, notes, opts...)
	h.questionActs = action.NewQuestions(api, h.reloadQuestions, notes, opts...)
	return h, nil
}

// Mount loads every store concurrently. Failures are kept in the stores and
// shown by the pages; the first one is also returned for logging.
func (h *Handler) Mount(ctx context.Context) error {
	g, _ := h.questionGroup(h.config.DefaultK)
	var eg errgroup.Group
	eg.Go(func() error { return h.contents.Fetch(ctx) })
	eg.Go(func() error { return h.knowledge.Fetch(ctx) })
	eg.Go(func() error { return h.groups.Fetch(ctx) })
	eg.Go(func() error { return g.store.Fetch(ctx) })
	return eg.Wait()
}

// reloadContents refetches the contents and knowledge listings concurrently.
func (h *Handler) reloadContents(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return h.contents.Fetch(ctx) })
	g.Go(func() error { return h.knowledge.Fetch(ctx) })
	return g.Wait()
}

// Wait blocks until every background action has settled.
func (h *Handler) Wait() {
	h.contentActs.Wait()
	h.knowledgeActs.Wait()
	h.questionActs.Wait()
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)

		r.Get("/", h.handleContents)
		r.Post("/contents/{id}/qa", h.handleGenerateQA)
		r.Post("/contents/{id}/knowledge", h.handleGenerateKnowledge)
		r.Post("/contents/qa-all", h.handleGenerateAllQA)
		r.Post("/contents/knowledge-all", h.handleGenerateAllKnowledge)
		r.Post("/contents/knowledge-clear", h.handleClearAllKnowledge)
		r.Post("/contents/rows/{id}/toggle", h.handleToggleContentRow)
		r.Post("/contents/rows/expand-all", h.handleExpandAll)
		r.Post("/contents/rows/collapse-all", h.handleCollapseAll)
		r.Post("/contents/refresh", h.reloadHandler(h.reloadContents))

		r.Get("/knowledge", h.handleKnowledge)
		r.Post("/knowledge/generate-all", h.handleKnowledgeGenerateAll)
		r.Post("/knowledge/clear-all", h.handleKnowledgeClearAll)
		r.Post("/knowledge/refresh", h.reloadHandler(h.reloadContents))

		r.Get("/questions", h.handleQuestions)
		r.Post("/questions/{k}/generate", h.handleGenerateQuestion)
		r.Post("/questions/{k}/generate-all", h.handleGenerateAllQuestions)
		r.Post("/questions/{k}/create", h.handleCreateAndGenerate)
		r.Post("/questions/{k}/rows/{id}/toggle", h.handleToggleQuestionRow)
		r.Post("/questions/refresh", h.reloadHandler(h.reloadQuestions))

		r.Post("/notifications/{id}/dismiss", h.handleDismiss)
	})
}

// BasePathMiddleware stores the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// path prefixes p with the base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

// page builds the chrome shared by every page.
func (h *Handler) page(r *http.Request, pending bool) views.Page {
	notes := h.notes.List()
	p := views.Page{
		BasePath:      model.BasePathFromContext(r.Context()),
		Back:          strings.TrimPrefix(r.URL.RequestURI(), h.config.BasePath),
		CSRFToken:     model.CSRFTokenFromContext(r.Context()),
		Notifications: notes,
	}
	if pending || len(notes) > 0 {
		p.Refresh = refreshSeconds(h.config)
		q := r.URL.Query()
		q.Set(autoRefreshParam, "1")
		p.RefreshURL = p.BasePath + strings.TrimPrefix(r.URL.Path, h.config.BasePath) + "?" + q.Encode()
	}
	return p
}

// isAutoRefresh reports whether r is a page reloading itself.
func isAutoRefresh(r *http.Request) bool {
	return r.URL.Query().Get(autoRefreshParam) == "1"
}

// visit fetches a page's data the way a fresh page load does. Auto-refresh
// reloads only re-render; background actions refresh the stores themselves.
func (h *Handler) visit(r *http.Request, fetch func(context.Context) error) {
	if isAutoRefresh(r) {
		return
	}
	if err := fetch(r.Context()); err != nil {
		slog.Warn("page load failed", "path", r.URL.Path, "error", err)
	}
}

func refreshSeconds(cfg model.AppConfig) int {
	s := int(cfg.RefreshInterval.Seconds())
	if s < 1 {
		s = 1
	}
	return s
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// redirectBack sends the browser to the page the form was posted from.
// Only local paths are honored; anything else falls back to fallback.
func (h *Handler) redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	back := r.FormValue("back")
	if !isLocalPath(back) {
		back = fallback
	}
	http.Redirect(w, r, h.path(back), http.StatusSeeOther)
}

func isLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	return !strings.ContainsAny(p, "\r\n")
}

// reloadHandler runs fetch synchronously and returns to the page. A failure is
// recorded by the store and rendered as the page's error state.
func (h *Handler) reloadHandler(fetch func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fetch(r.Context()); err != nil {
			slog.Warn("reload failed", "path", r.URL.Path, "error", err)
		}
		h.redirectBack(w, r, "/")
	}
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	h.notes.Dismiss(chi.URLParam(r, "id"))
	h.redirectBack(w, r, "/")
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// statusView converts a store status for templates.
func statusView[E any](st store.State[E]) views.StatusView {
	return views.StatusView{Status: st.Status, Err: st.Err}
}

// availableKs returns the known group sizes, always including k.
func availableKs(ks []int, k int) []int {
	out := slices.Clone(ks)
	if !slices.Contains(out, k) {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
