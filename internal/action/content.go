package action

import (
	"context"
	"encoding/json"

	appI18n "github.com/pavelanni/knowpilot/internal/i18n"
	"github.com/pavelanni/knowpilot/internal/model"
)

// ContentAPI is the part of the backend used by the contents page.
type ContentAPI interface {
	GenerateQASingle(ctx context.Context, id int64) (json.RawMessage, error)
	GenerateKnowledgeSingle(ctx context.Context, id int64) (json.RawMessage, error)
	GenerateQAAll(ctx context.Context) (model.UpdatedCount, error)
	GenerateKnowledgeAll(ctx context.Context) (model.UpdatedCount, error)
	ClearAllKnowledgePoints(ctx context.Context) (model.UpdatedCount, error)
}

// Content builds the contents page actions.
type Content struct {
	*Tracker
	api ContentAPI
}

// NewContent creates the contents page tracker.
func NewContent(api ContentAPI, refresh RefreshFunc, n Notifier, opts ...Option) *Content {
	return &Content{Tracker: NewTracker("contents", refresh, n, opts...), api: api}
}

// GenerateQA generates a Q&A pair for one record.
func (c *Content) GenerateQA(id int64) Action {
	return Action{
		Key:    Key{Kind: KindQA, ID: id},
		FailID: "GenerateQAFailed",
		Do: func(ctx context.Context) (string, error) {
			if _, err := c.api.GenerateQASingle(ctx, id); err != nil {
				return "", err
			}
			return appI18n.Td(ctx, "GeneratedQA", map[string]any{"ID": id}), nil
		},
	}
}

// GenerateKnowledge generates a knowledge point for one record.
func (c *Content) GenerateKnowledge(id int64) Action {
	return Action{
		Key:    Key{Kind: KindKnowledge, ID: id},
		FailID: "GenerateKnowledgeFailed",
		Do: func(ctx context.Context) (string, error) {
			if _, err := c.api.GenerateKnowledgeSingle(ctx, id); err != nil {
				return "", err
			}
			return appI18n.Td(ctx, "GeneratedKnowledge", map[string]any{"ID": id}), nil
		},
	}
}

// GenerateAllQA generates Q&A pairs for every record.
func (c *Content) GenerateAllQA() Action {
	return Action{
		Bulk:   true,
		FailID: "GenerateAllQAFailed",
		Do: func(ctx context.Context) (string, error) {
			res, err := c.api.GenerateQAAll(ctx)
			if err != nil {
				return "", err
			}
			return appI18n.Td(ctx, "GeneratedAllQA", map[string]any{"Count": res.UpdatedCount}), nil
		},
	}
}

// GenerateAllKnowledge generates knowledge points for every record.
func (c *Content) GenerateAllKnowledge() Action {
	return Action{
		Bulk:   true,
		FailID: "GenerateAllKnowledgeFailed",
		Do: func(ctx context.Context) (string, error) {
			res, err := c.api.GenerateKnowledgeAll(ctx)
			if err != nil {
				return "", err
			}
			return appI18n.Td(ctx, "GeneratedAllKnowledge", map[string]any{"Count": res.UpdatedCount}), nil
		},
	}
}

// ClearAllKnowledge removes every knowledge point.
func (c *Content) ClearAllKnowledge() Action {
	return Action{
		Bulk:   true,
		FailID: "ClearAllKnowledgeFailed",
		Do: func(ctx context.Context) (string, error) {
			res, err := c.api.ClearAllKnowledgePoints(ctx)
			if err != nil {
				return "", err
			}
			return appI18n.Td(ctx, "ClearedAllKnowledge", map[string]any{"Count": res.UpdatedCount}), nil
		},
	}
}
