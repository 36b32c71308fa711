package template

import (
	"bytes"
	stdtemplate "html/template"
	"io/fs"
	"net/http"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/gosimple/slug"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	blackfriday "gopkg.in/russross/blackfriday.v2"
)

type Template struct {
	templates *stdtemplate.Template
	policy    *bluemonday.Policy
}

// NewTemplate parses every file in fsys matching pattern.
func NewTemplate(fsys fs.FS, pattern string) (*Template, error) {
	t := &Template{policy: bluemonday.UGCPolicy()}
	funcMap := stdtemplate.FuncMap{
		"humannumber": func(n int) string {
			return humanize.Comma(int64(n))
		},
		"humansalary": listing.HumanSalary,
		"markdown":    t.MarkdownToHTML,
		"slug":        slug.Make,
		"stringTitle": strings.Title,
		"truncate": func(s string, n int) string {
			r := []rune(s)
			if len(r) <= n {
				return s
			}
			return strings.TrimSpace(string(r[:n])) + "…"
		},
		"lower": strings.ToLower,
	}
	tmpl, err := stdtemplate.New("stdtmpl").Funcs(funcMap).ParseFS(fsys, pattern)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse templates")
	}
	t.templates = tmpl
	return t, nil
}

// Render executes into a buffer first so a template error never leaves a
// half written page behind.
func (t *Template) Render(w http.ResponseWriter, status int, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := t.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return errors.Wrapf(err, "unable to render %s", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (t *Template) MarkdownToHTML(s string) stdtemplate.HTML {
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.Safelink |
			blackfriday.NofollowLinks |
			blackfriday.NoreferrerLinks |
			blackfriday.HrefTargetBlank,
	})
	raw := blackfriday.Run([]byte(s), blackfriday.WithRenderer(renderer))
	return stdtemplate.HTML(t.policy.SanitizeBytes(raw))
}
