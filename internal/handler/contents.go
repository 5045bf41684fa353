package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/knowpilot/internal/action"
	"github.com/pavelanni/knowpilot/internal/handler/views"
	"github.com/pavelanni/knowpilot/internal/model"
	"github.com/pavelanni/knowpilot/internal/pipeline"
	"github.com/pavelanni/knowpilot/internal/store"
)

func (h *Handler) handleContents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	section := q.Get("section")
	if section == "" {
		section = model.SectionAll
	}
	size := h.config.DefaultGroupSize
	if s := q.Get("size"); s != "" {
		size = pipeline.CoerceGroupSize(s)
	}

	h.visit(r, h.contents.Fetch)
	st := h.contents.State()
	v := views.ContentsView{
		StatusView:    statusView(st),
		Section:       section,
		Query:         q.Get("q"),
		Grouped:       q.Get("grouped") == "1",
		GroupSize:     size,
		ProcessingAll: h.contentActs.ProcessingAll(),
	}
	if st.Status == store.StatusLoaded {
		res := pipeline.Transform(st.Data, pipeline.Params{Section: section, Query: v.Query, GroupSize: size})
		v.Sections = res.Sections
		v.Rows = h.contentRowViews(res.Filtered)
		for _, g := range res.Groups {
			v.Groups = append(v.Groups, views.GroupView{ID: g.GroupID, Rows: h.contentRowViews(g.Records)})
		}
		v.AllExpanded = h.contentRows.AllExpanded(len(res.Filtered))
	}

	pending := st.Status == store.StatusLoading || h.contentActs.Busy()
	h.render(w, r, views.ContentsPage(h.page(r, pending), v))
}

func (h *Handler) contentRowViews(records []model.ContentRecord) []views.RowView {
	out := make([]views.RowView, 0, len(records))
	for _, rec := range records {
		out = append(out, views.RowView{
			Record:       rec,
			Expanded:     h.contentRows.Expanded(rec.ID),
			GeneratingQA: h.contentActs.Generating(action.KindQA, rec.ID),
			GeneratingKP: h.contentActs.Generating(action.KindKnowledge, rec.ID),
		})
	}
	return out
}

func (h *Handler) handleGenerateQA(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	h.contentActs.Start(r.Context(), h.contentActs.GenerateQA(id))
	h.redirectBack(w, r, "/")
}

func (h *Handler) handleGenerateKnowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	h.contentActs.Start(r.Context(), h.contentActs.GenerateKnowledge(id))
	h.redirectBack(w, r, "/")
}

func (h *Handler) handleGenerateAllQA(w http.ResponseWriter, r *http.Request) {
	h.contentActs.Start(r.Context(), h.contentActs.GenerateAllQA())
	h.redirectBack(w, r, "/")
}

func (h *Handler) handleGenerateAllKnowledge(w http.ResponseWriter, r *http.Request) {
	h.contentActs.Start(r.Context(), h.contentActs.GenerateAllKnowledge())
	h.redirectBack(w, r, "/")
}

func (h *Handler) handleClearAllKnowledge(w http.ResponseWriter, r *http.Request) {
	h.contentActs.Start(r.Context(), h.contentActs.ClearAllKnowledge())
	h.redirectBack(w, r, "/")
}

func (h *Handler) handleToggleContentRow(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	h.contentRows.Toggle(id)
	h.redirectBack(w, r, "/")
}

// handleExpandAll expands the rows listed in the id form values, which the
// page fills with the currently visible ids.
func (h *Handler) handleExpandAll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ids := make([]int64, 0, len(r.PostForm["id"]))
	for _, s := range r.PostForm["id"] {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			http.Error(w, "invalid row ID", http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}
	h.contentRows.ExpandAll(ids)
	h.redirectBack(w, r, "/")
}

func (h *Handler) handleCollapseAll(w http.ResponseWriter, r *http.Request) {
	h.contentRows.CollapseAll()
	h.redirectBack(w, r, "/")
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
