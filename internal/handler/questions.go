package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/knowpilot/internal/action"
	"github.com/pavelanni/knowpilot/internal/handler/views"
	"github.com/pavelanni/knowpilot/internal/model"
	"github.com/pavelanni/knowpilot/internal/rows"
	"github.com/pavelanni/knowpilot/internal/store"
)

// maxQuestionGroups bounds how many group sizes keep a cached store.
const maxQuestionGroups = 16

// questionGroup is the cached data and row state of one group size.
type questionGroup struct {
	store *store.Store[model.QuestionRecord]
	rows  *rows.State
}

// questionGroup returns the group for k, creating it on first use. The oldest
// group other than the default is evicted when the cache is full.
func (h *Handler) questionGroup(k int) (*questionGroup, bool) {
	h.qmu.Lock()
	defer h.qmu.Unlock()
	if g, ok := h.questions[k]; ok {
		return g, false
	}
	if len(h.questions) >= maxQuestionGroups {
		for i, old := range h.qorder {
			if old != h.config.DefaultK {
				delete(h.questions, old)
				h.qorder = slices.Delete(h.qorder, i, i+1)
				break
			}
		}
	}
	g := &questionGroup{
		store: store.New(fmt.Sprintf("questions/%d", k), func(ctx context.Context) ([]model.QuestionRecord, error) {
			return h.groupData(ctx, k)
		}),
		rows: rows.New(),
	}
	h.questions[k] = g
	h.qorder = append(h.qorder, k)
	return g, true
}

func (h *Handler) questionGroups() []*questionGroup {
	h.qmu.Lock()
	defer h.qmu.Unlock()
	out := make([]*questionGroup, 0, len(h.qorder))
	for _, k := range h.qorder {
		out = append(out, h.questions[k])
	}
	return out
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	k := h.config.DefaultK
	if s := r.URL.Query().Get("k"); s != "" {
		var err error
		if k, err = strconv.Atoi(s); err != nil || k < 1 {
			http.Error(w, "invalid group size", http.StatusBadRequest)
			return
		}
	}

	g, created := h.questionGroup(k)
	if created || !isAutoRefresh(r) {
		if err := h.loadQuestionGroup(r.Context(), g); err != nil {
			slog.Warn("load question group failed", "k", k, "error", err)
		}
	}

	st := g.store.State()
	v := views.QuestionsView{
		StatusView:    statusView(st),
		K:             k,
		Available:     availableKs(h.groups.Data(), k),
		Generating:    h.questionActs.Generating(action.KindQuestion, int64(k)),
		ProcessingAll: h.questionActs.ProcessingAll(),
	}
	if st.Status == store.StatusLoaded {
		v.Rows = questionRowViews(st.Data, g.rows)
	}

	pending := st.Status == store.StatusLoading || h.questionActs.Busy()
	h.render(w, r, views.QuestionsPage(h.page(r, pending), v))
}

// loadQuestionGroup reloads the available group sizes and the rows of g
// concurrently.
func (h *Handler) loadQuestionGroup(ctx context.Context, g *questionGroup) error {
	var eg errgroup.Group
	eg.Go(func() error { return h.groups.Fetch(ctx) })
	eg.Go(func() error { return g.store.Fetch(ctx) })
	return eg.Wait()
}

// reloadQuestions reloads the available group sizes and every cached group.
func (h *Handler) reloadQuestions(ctx context.Context) error {
	var eg errgroup.Group
	eg.Go(func() error { return h.groups.Fetch(ctx) })
	for _, g := range h.questionGroups() {
		eg.Go(func() error { return g.store.Fetch(ctx) })
	}
	return eg.Wait()
}

func questionRowViews(records []model.QuestionRecord, expanded *rows.State) []views.QuestionRowView {
	out := make([]views.QuestionRowView, 0, len(records))
	for _, rec := range records {
		correct, ok := rec.CorrectChoice()
		out = append(out, views.QuestionRowView{
			Record:     rec,
			Choices:    rec.Choices(),
			Correct:    correct,
			HasCorrect: ok,
			Expanded:   expanded.Expanded(rec.ID),
		})
	}
	return out
}

func (h *Handler) handleGenerateQuestion(w http.ResponseWriter, r *http.Request) {
	k, ok := parseK(w, r)
	if !ok {
		return
	}
	h.questionActs.Start(r.Context(), h.questionActs.GenerateQuestion(k))
	h.redirectBack(w, r, "/questions")
}

func (h *Handler) handleGenerateAllQuestions(w http.ResponseWriter, r *http.Request) {
	k, ok := parseK(w, r)
	if !ok {
		return
	}
	h.questionActs.Start(r.Context(), h.questionActs.GenerateAll(k))
	h.redirectBack(w, r, "/questions")
}

func (h *Handler) handleCreateAndGenerate(w http.ResponseWriter, r *http.Request) {
	k, ok := parseK(w, r)
	if !ok {
		return
	}
	h.questionActs.Start(r.Context(), h.questionActs.CreateAndGenerate(k))
	h.redirectBack(w, r, "/questions")
}

func (h *Handler) handleToggleQuestionRow(w http.ResponseWriter, r *http.Request) {
	k, ok := parseK(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	h.qmu.Lock()
	g := h.questions[k]
	h.qmu.Unlock()
	if g != nil {
		g.rows.Toggle(id)
	}
	h.redirectBack(w, r, "/questions")
}

func parseK(w http.ResponseWriter, r *http.Request) (int, bool) {
	k, err := strconv.Atoi(chi.URLParam(r, "k"))
	if err != nil || k < 1 {
		http.Error(w, "invalid group size", http.StatusBadRequest)
		return 0, false
	}
	return k, true
}
