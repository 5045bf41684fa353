package action

import (
	"context"

	appI18n "github.com/pavelanni/knowpilot/internal/i18n"
	"github.com/pavelanni/knowpilot/internal/model"
)

// KnowledgeAPI is the part of the backend used by the knowledge page.
type KnowledgeAPI interface {
	KnowledgeGenerateAll(ctx context.Context) (model.SuccessCount, error)
	KnowledgeClearAll(ctx context.Context) error
}

// Knowledge builds the knowledge page actions.
type Knowledge struct {
	*Tracker
	api KnowledgeAPI
}

// NewKnowledge creates the knowledge page tracker.
func NewKnowledge(api KnowledgeAPI, refresh RefreshFunc, n Notifier, opts ...Option) *Knowledge {
	return &Knowledge{Tracker: NewTracker("knowledge", refresh, n, opts...), api: api}
}

// GenerateAll generates knowledge points for all content.
func (k *Knowledge) GenerateAll() Action {
	return Action{
		Bulk:   true,
		InfoID: "KnowledgeGenerating",
		FailID: "KnowledgeGenerateFailed",
		Do: func(ctx context.Context) (string, error) {
			res, err := k.api.KnowledgeGenerateAll(ctx)
			if err != nil {
				return "", err
			}
			return appI18n.Td(ctx, "KnowledgeGenerated", map[string]any{"Count": res.SuccessCount}), nil
		},
	}
}

// ClearAll clears all knowledge points.
func (k *Knowledge) ClearAll() Action {
	return Action{
		Bulk:   true,
		InfoID: "KnowledgeClearing",
		FailID: "KnowledgeClearFailed",
		Do: func(ctx context.Context) (string, error) {
			if err := k.api.KnowledgeClearAll(ctx); err != nil {
				return "", err
			}
			return appI18n.T(ctx, "KnowledgeCleared"), nil
		},
	}
}
