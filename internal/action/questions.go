package action

import (
	"context"

	appI18n "github.com/pavelanni/knowpilot/internal/i18n"
	"github.com/pavelanni/knowpilot/internal/model"
)

// QuestionAPI is the part of the backend used by the questions page.
type QuestionAPI interface {
	GenerateSingleChoiceQuestion(ctx context.Context, k int) (model.GeneratedQuestion, error)
	GenerateQuestionsForAll(ctx context.Context, k int) (model.SuccessCount, error)
	CreateAndGenerate(ctx context.Context, k int) (model.CreateAndGenerateResult, error)
}

// Questions builds the questions page actions. Every action targets one k group.
type Questions struct {
	*Tracker
	api QuestionAPI
}

// NewQuestions creates the questions page tracker.
func NewQuestions(api QuestionAPI, refresh RefreshFunc, n Notifier, opts ...Option) *Questions {
	return &Questions{Tracker: NewTracker("questions", refresh, n, opts...), api: api}
}

// GenerateQuestion generates one random single-choice question in group k.
func (q *Questions) GenerateQuestion(k int) Action {
	return Action{
		Key:      Key{Kind: KindQuestion, ID: int64(k)},
		InfoID:   "QuestionGenerating",
		InfoData: map[string]any{"K": k},
		FailID:   "QuestionGenerateFailed",
		Do: func(ctx context.Context) (string, error) {
			res, err := q.api.GenerateSingleChoiceQuestion(ctx, k)
			if err != nil {
				return "", err
			}
			return appI18n.Td(ctx, "QuestionGenerated", map[string]any{"RowID": res.RowID}), nil
		},
	}
}

// GenerateAll generates questions for every row of group k.
func (q *Questions) GenerateAll(k int) Action {
	return Action{
		Bulk:     true,
		InfoID:   "QuestionsGenerating",
		InfoData: map[string]any{"K": k},
		FailID:   "QuestionsGenerateFailed",
		Do: func(ctx context.Context) (string, error) {
			res, err := q.api.GenerateQuestionsForAll(ctx, k)
			if err != nil {
				return "", err
			}
			return appI18n.Td(ctx, "QuestionsGenerated", map[string]any{"Count": res.SuccessCount}), nil
		},
	}
}

// CreateAndGenerate creates the group k table and fills it with questions.
func (q *Questions) CreateAndGenerate(k int) Action {
	return Action{
		Bulk:     true,
		InfoID:   "GroupCreating",
		InfoData: map[string]any{"K": k},
		FailID:   "GroupCreateFailed",
		Do: func(ctx context.Context) (string, error) {
			res, err := q.api.CreateAndGenerate(ctx, k)
			if err != nil {
				return "", err
			}
			return appI18n.Td(ctx, "GroupCreated", map[string]any{
				"K":      k,
				"Status": res.TableOperation.Status,
				"Count":  res.QuestionGeneration.SuccessCount,
			}), nil
		},
	}
}
