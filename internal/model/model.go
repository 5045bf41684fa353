package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SectionAll is the section filter value that matches every record.
const SectionAll = "all"

// ContentRecord is one unit of course content as served by /all_contents.
type ContentRecord struct {
	ID             int64   `json:"id"`
	Section        string  `json:"section"`
	PageName       string  `json:"page_name"`
	Content        string  `json:"content"`
	KnowledgePoint *string `json:"knowledge_point,omitempty"`
	Question       *string `json:"question,omitempty"`
	Answer         *string `json:"answer,omitempty"`
}

// HasKnowledgePoint reports whether a non-empty knowledge point was generated.
func (r ContentRecord) HasKnowledgePoint() bool {
	return r.KnowledgePoint != nil && *r.KnowledgePoint != ""
}

// HasQA reports whether both halves of the Q&A pair were generated.
func (r ContentRecord) HasQA() bool {
	return r.Question != nil && *r.Question != "" && r.Answer != nil && *r.Answer != ""
}

// KnowledgePointText returns the knowledge point or "".
func (r ContentRecord) KnowledgePointText() string { return deref(r.KnowledgePoint) }

// QuestionText returns the generated question or "".
func (r ContentRecord) QuestionText() string { return deref(r.Question) }

// AnswerText returns the generated answer or "".
func (r ContentRecord) AnswerText() string { return deref(r.Answer) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Group is a fixed-size chunk of filtered records.
type Group struct {
	GroupID int             `json:"group_id"`
	Records []ContentRecord `json:"facts"`
}

// Choice is one labelled option of a multiple-choice question.
type Choice struct {
	Index  int    // 1-based index of the contentN field
	Letter string // A, B, C...
	Text   string
}

// QuestionRecord is one generated multiple-choice question of a k-group.
// The contentN fields are variable in number, so the record is decoded by hand.
type QuestionRecord struct {
	ID            int64
	Question      *string
	Contents      map[int]string
	CorrectAnswer *int
}

// UnmarshalJSON decodes id, question, correct_answer and every contentN key.
func (q *QuestionRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*q = QuestionRecord{Contents: map[int]string{}}
	for key, val := range raw {
		switch {
		case key == "id":
			if err := json.Unmarshal(val, &q.ID); err != nil {
				return fmt.Errorf("decode id: %w", err)
			}
		case key == "question":
			var s *string
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("decode question: %w", err)
			}
			q.Question = s
		case key == "correct_answer":
			n, err := decodeLooseInt(val)
			if err != nil {
				return fmt.Errorf("decode correct_answer: %w", err)
			}
			q.CorrectAnswer = n
		case strings.HasPrefix(key, "content"):
			idx, err := strconv.Atoi(strings.TrimPrefix(key, "content"))
			if err != nil || idx < 1 {
				continue
			}
			var s *string
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			if s != nil {
				q.Contents[idx] = *s
			}
		}
	}
	return nil
}

// MarshalJSON writes the record back in the backend's flat layout.
func (q QuestionRecord) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":             q.ID,
		"question":       q.Question,
		"correct_answer": q.CorrectAnswer,
	}
	for idx, text := range q.Contents {
		out["content"+strconv.Itoa(idx)] = text
	}
	return json.Marshal(out)
}

// decodeLooseInt accepts null, a JSON number or a numeric string.
func decodeLooseInt(val json.RawMessage) (*int, error) {
	var v any
	if err := json.Unmarshal(val, &v); err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		n := int(t)
		return &n, nil
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(t)
		if err != nil {
			return nil, err
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}

// QuestionText returns the generated question or "".
func (q QuestionRecord) QuestionText() string { return deref(q.Question) }

// Choices returns the non-empty content fields in field-index order,
// lettered A, B, C... by position among the offered choices.
func (q QuestionRecord) Choices() []Choice {
	idxs := make([]int, 0, len(q.Contents))
	for idx, text := range q.Contents {
		if text != "" {
			idxs = append(idxs, idx)
		}
	}
	sort.Ints(idxs)

	choices := make([]Choice, 0, len(idxs))
	for i, idx := range idxs {
		choices = append(choices, Choice{
			Index:  idx,
			Letter: choiceLetter(i + 1),
			Text:   q.Contents[idx],
		})
	}
	return choices
}

// CorrectChoice resolves correct_answer against the content fields.
// The letter follows the field index, so content3 is always option C.
// An answer past the last content field, or past Z, is reported as missing.
func (q QuestionRecord) CorrectChoice() (Choice, bool) {
	if q.CorrectAnswer == nil || *q.CorrectAnswer < 1 || *q.CorrectAnswer > maxLetters {
		return Choice{}, false
	}
	idx := *q.CorrectAnswer
	last := 0
	for i := range q.Contents {
		last = max(last, i)
	}
	if idx > last {
		return Choice{}, false
	}
	return Choice{
		Index:  idx,
		Letter: choiceLetter(idx),
		Text:   q.Contents[idx],
	}, true
}

const maxLetters = 26

// choiceLetter labels the n-th option A through Z and falls back to the
// number beyond that.
func choiceLetter(n int) string {
	if n < 1 || n > maxLetters {
		return strconv.Itoa(n)
	}
	return string(rune('A' + n - 1))
}

// UpdatedCount is returned by bulk endpoints of the content family.
type UpdatedCount struct {
	UpdatedCount int `json:"updated_count"`
}

// SuccessCount is returned by bulk endpoints of the knowledge and group families.
type SuccessCount struct {
	SuccessCount int `json:"success_count"`
}

// GeneratedQuestion is returned after generating one single-choice question.
type GeneratedQuestion struct {
	RowID int64 `json:"row_id"`
}

// CreateAndGenerateResult is returned by /content-group/create-and-generate/{k}.
type CreateAndGenerateResult struct {
	TableOperation struct {
		Status string `json:"status"`
	} `json:"table_operation"`
	QuestionGeneration struct {
		SuccessCount int `json:"success_count"`
	} `json:"question_generation"`
}

// NotificationType is the severity of a notification.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
)

// Notification is a transient UI message.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}

// AppConfig holds runtime view parameters set via CLI flags.
type AppConfig struct {
	BasePath         string        // URL prefix for sub-path deployments
	DefaultGroupSize int           // initial items per group on the contents page
	DefaultK         int           // initial question group size on the questions page
	RequestTimeout   time.Duration // bound for background actions
	RefreshInterval  time.Duration // page auto-refresh while work is pending
	SecureCookies    bool          // set the Secure flag on the CSRF cookie
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfTokenCtxKey struct{}

// ContextWithCSRFToken stores the form token of the current request.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfTokenCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the form token (empty string if not set).
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfTokenCtxKey{}).(string)
	return t
}
