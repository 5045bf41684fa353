// Package views renders the KnowPilot pages as templ components backed by
// embedded html/template files.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/knowpilot/internal/i18n"
	"github.com/pavelanni/knowpilot/internal/model"
	"github.com/pavelanni/knowpilot/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = mustParsePages("contents", "knowledge", "questions")

func mustParsePages(names ...string) map[string]*template.Template {
	base := template.Must(template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/partials.html"))
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t := template.Must(template.Must(base.Clone()).ParseFS(templateFS, "templates/"+name+".html"))
		out[name] = t.Lookup("layout")
	}
	return out
}

var funcs = template.FuncMap{
	"kv": func(pairs ...any) (map[string]any, error) {
		if len(pairs)%2 != 0 {
			return nil, fmt.Errorf("kv: odd number of arguments")
		}
		m := make(map[string]any, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			k, ok := pairs[i].(string)
			if !ok {
				return nil, fmt.Errorf("kv: key %v is not a string", pairs[i])
			}
			m[k] = pairs[i+1]
		}
		return m, nil
	},
}

// Page is the data shared by every page: chrome, notifications and
// translation helpers bound to the request context.
type Page struct {
	Nav           string
	BasePath      string
	Back          string // current path and query, relative to BasePath
	CSRFToken     string
	Notifications []model.Notification
	Refresh       int    // seconds until the page reloads itself; 0 disables
	RefreshURL    string // target of the self-reload, with the base path

	ctx context.Context
}

// T translates msgID.
func (p Page) T(msgID string) string { return appI18n.T(p.ctx, msgID) }

// Td translates msgID with data built by the kv template func.
func (p Page) Td(msgID string, data map[string]any) string { return appI18n.Td(p.ctx, msgID, data) }

// Tp translates a pluralized msgID.
func (p Page) Tp(msgID string, count int) string { return appI18n.Tp(p.ctx, msgID, count) }

// URL joins path onto the base path.
func (p Page) URL(path string) string { return p.BasePath + path }

// StatusView mirrors store.Status for templates.
type StatusView struct {
	Status store.Status
	Err    string
}

func (s StatusView) Loading() bool { return s.Status == store.StatusLoading }
func (s StatusView) Failed() bool  { return s.Status == store.StatusError }
func (s StatusView) Empty() bool   { return s.Status == store.StatusEmpty }
func (s StatusView) Loaded() bool  { return s.Status == store.StatusLoaded }

// RowView is one content row with its UI flags.
type RowView struct {
	Record       model.ContentRecord
	Expanded     bool
	GeneratingQA bool
	GeneratingKP bool
}

// GroupView is one numbered chunk of rows.
type GroupView struct {
	ID   int
	Rows []RowView
}

// ContentsView is the contents page view model.
type ContentsView struct {
	StatusView
	Sections      []string
	Section       string
	Query         string
	Grouped       bool
	GroupSize     int
	Rows          []RowView
	Groups        []GroupView
	ProcessingAll bool
	AllExpanded   bool
}

// IsAllSections reports whether no section filter is active.
func (v ContentsView) IsAllSections() bool {
	return v.Section == "" || v.Section == model.SectionAll
}

// Params encodes the current filters as a link query, with the grouping flag
// overridden. It is typed as a URL so the template keeps & and = intact.
func (v ContentsView) Params(grouped bool) template.URL {
	q := url.Values{}
	if !v.IsAllSections() {
		q.Set("section", v.Section)
	}
	if v.Query != "" {
		q.Set("q", v.Query)
	}
	if grouped {
		q.Set("grouped", "1")
	}
	q.Set("size", fmt.Sprint(v.GroupSize))
	return template.URL(q.Encode())
}

// KnowledgeView is the knowledge page view model.
type KnowledgeView struct {
	StatusView
	Query         string
	Rows          []model.ContentRecord
	ProcessingAll bool
}

// QuestionRowView is one multiple-choice question with its UI flags.
type QuestionRowView struct {
	Record     model.QuestionRecord
	Choices    []model.Choice
	Correct    model.Choice
	HasCorrect bool
	Expanded   bool
}

// QuestionsView is the questions page view model.
type QuestionsView struct {
	StatusView
	K             int
	Available     []int
	Rows          []QuestionRowView
	Generating    bool
	ProcessingAll bool
}

type pageData struct {
	Page
	View any
}

func render(name string, p Page, view any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p.ctx = ctx
		return templ.FromGoHTML(pages[name], pageData{Page: p, View: view}).Render(ctx, w)
	})
}

// ContentsPage renders the course contents list or grouped view.
func ContentsPage(p Page, v ContentsView) templ.Component {
	p.Nav = "contents"
	return render("contents", p, v)
}

// KnowledgePage renders the knowledge management table.
func KnowledgePage(p Page, v KnowledgeView) templ.Component {
	p.Nav = "knowledge"
	return render("knowledge", p, v)
}

// QuestionsPage renders the multiple-choice questions of one k group.
func QuestionsPage(p Page, v QuestionsView) templ.Component {
	p.Nav = "questions"
	return render("questions", p, v)
}
