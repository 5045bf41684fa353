package handler

import (
	"net/http"

	"github.com/pavelanni/knowpilot/internal/handler/views"
	"github.com/pavelanni/knowpilot/internal/pipeline"
	"github.com/pavelanni/knowpilot/internal/store"
)

func (h *Handler) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	h.visit(r, h.knowledge.Fetch)
	st := h.knowledge.State()
	v := views.KnowledgeView{
		StatusView:    statusView(st),
		Query:         r.URL.Query().Get("q"),
		ProcessingAll: h.knowledgeActs.ProcessingAll(),
	}
	if st.Status == store.StatusLoaded {
		v.Rows = pipeline.SearchKnowledge(st.Data, v.Query)
	}

	pending := st.Status == store.StatusLoading || h.knowledgeActs.Busy()
	h.render(w, r, views.KnowledgePage(h.page(r, pending), v))
}

func (h *Handler) handleKnowledgeGenerateAll(w http.ResponseWriter, r *http.Request) {
	h.knowledgeActs.Start(r.Context(), h.knowledgeActs.GenerateAll())
	h.redirectBack(w, r, "/knowledge")
}

func (h *Handler) handleKnowledgeClearAll(w http.ResponseWriter, r *http.Request) {
	h.knowledgeActs.Start(r.Context(), h.knowledgeActs.ClearAll())
	h.redirectBack(w, r, "/knowledge")
}
