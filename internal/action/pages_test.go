package action

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pavelanni/knowpilot/internal/backend"
	"github.com/pavelanni/knowpilot/internal/model"
)

type fakeKnowledgeAPI struct {
	success int
	err     error
}

func (f *fakeKnowledgeAPI) KnowledgeGenerateAll(context.Context) (model.SuccessCount, error) {
	return model.SuccessCount{SuccessCount: f.success}, f.err
}

func (f *fakeKnowledgeAPI) KnowledgeClearAll(context.Context) error { return f.err }

type fakeQuestionAPI struct {
	gotK []int
	err  error
}

func (f *fakeQuestionAPI) GenerateSingleChoiceQuestion(_ context.Context, k int) (model.GeneratedQuestion, error) {
	f.gotK = append(f.gotK, k)
	return model.GeneratedQuestion{RowID: 11}, f.err
}

func (f *fakeQuestionAPI) GenerateQuestionsForAll(_ context.Context, k int) (model.SuccessCount, error) {
	f.gotK = append(f.gotK, k)
	return model.SuccessCount{SuccessCount: 6}, f.err
}

func (f *fakeQuestionAPI) CreateAndGenerate(_ context.Context, k int) (model.CreateAndGenerateResult, error) {
	f.gotK = append(f.gotK, k)
	var res model.CreateAndGenerateResult
	res.TableOperation.Status = "created"
	res.QuestionGeneration.SuccessCount = 8
	return res, f.err
}

func TestKnowledgeActions(t *testing.T) {
	ctx := initEnglish(t)

	t.Run("generate all", func(t *testing.T) {
		notes := &recordingNotifier{}
		refresh := &countingRefresh{}
		k := NewKnowledge(&fakeKnowledgeAPI{success: 12}, refresh.fetch, notes)
		if err := k.Run(ctx, k.GenerateAll()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		list := notes.list()
		if len(list) != 2 || list[0].Type != model.NotifyInfo || list[1].Type != model.NotifySuccess {
			t.Fatalf("expected info then success, got %+v", list)
		}
		if list[1].Message != "Successfully generated 12 knowledge points" {
			t.Errorf("success message = %q", list[1].Message)
		}
		if refresh.count() != 1 {
			t.Errorf("expected one refresh, got %d", refresh.count())
		}
	})

	t.Run("clear all failure", func(t *testing.T) {
		notes := &recordingNotifier{}
		err := &backend.Error{Kind: backend.KindStatus, Status: 503, Body: "busy"}
		k := NewKnowledge(&fakeKnowledgeAPI{err: err}, nil, notes)
		if got := k.Run(ctx, k.ClearAll()); !errors.Is(got, err) {
			t.Fatalf("Run = %v, want %v", got, err)
		}
		errs := notes.ofType(model.NotifyError)
		if len(errs) != 1 || !strings.Contains(errs[0], "503") {
			t.Errorf("error notifications = %v", errs)
		}
	})
}

func TestQuestionActions(t *testing.T) {
	ctx := initEnglish(t)
	api := &fakeQuestionAPI{}
	notes := &recordingNotifier{}
	q := NewQuestions(api, nil, notes)

	if err := q.Run(ctx, q.GenerateQuestion(3)); err != nil {
		t.Fatalf("GenerateQuestion: %v", err)
	}
	if err := q.Run(ctx, q.GenerateAll(4)); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if err := q.Run(ctx, q.CreateAndGenerate(5)); err != nil {
		t.Fatalf("CreateAndGenerate: %v", err)
	}

	if len(api.gotK) != 3 || api.gotK[0] != 3 || api.gotK[1] != 4 || api.gotK[2] != 5 {
		t.Errorf("k values = %v, want [3 4 5]", api.gotK)
	}
	want := []string{
		"Successfully generated question for row #11",
		"Successfully generated questions for 6 rows",
		"Group 5: table created, generated 8 questions",
	}
	got := notes.ofType(model.NotifySuccess)
	if len(got) != len(want) {
		t.Fatalf("success notifications = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d = %q, want %q", i, got[i], want[i])
		}
	}
	if infos := notes.ofType(model.NotifyInfo); len(infos) != 3 || infos[2] != "Creating group 5 and generating questions..." {
		t.Errorf("info notifications = %v", infos)
	}
}

func TestQuestionFailureIncludesGroup(t *testing.T) {
	ctx := initEnglish(t)
	q := NewQuestions(&fakeQuestionAPI{err: errors.New("table missing")}, nil, &recordingNotifier{})
	notes := q.notify.(*recordingNotifier)

	if err := q.Run(ctx, q.CreateAndGenerate(2)); err == nil {
		t.Fatal("expected error")
	}
	errs := notes.ofType(model.NotifyError)
	if len(errs) != 1 || errs[0] != "Failed to create group 2: table missing" {
		t.Errorf("error notifications = %v", errs)
	}
}
