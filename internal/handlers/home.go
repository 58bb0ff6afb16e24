package handlers

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"fundbridge-gpt/internal/catalog"
	"fundbridge-gpt/internal/contextutil"
)

//go:embed home.md
var homeMarkdown []byte

// HomeHandler serves the welcome page.
type HomeHandler struct {
	template *template.Template
	content  template.HTML
}

// homePageData holds template data for the welcome page.
type homePageData struct {
	Title   string
	Content template.HTML
	Models  []catalog.Model
}

// NewHomeHandler renders the welcome page once. The markdown is embedded,
// so a render failure is a build defect and panics.
func NewHomeHandler() *HomeHandler {
	tmpl := template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    :root {
      color-scheme: dark;
    }
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
      margin: 0 auto;
      padding: 2rem;
      max-width: 900px;
      line-height: 1.7;
      background: #050b18;
      color: #e4ecff;
    }
    article {
      background: rgba(12, 19, 35, 0.85);
      border: 1px solid rgba(99, 102, 241, 0.2);
      border-radius: 16px;
      padding: 2rem;
    }
    table {
      border-collapse: collapse;
      width: 100%;
    }
    th, td {
      text-align: left;
      padding: 0.4rem 0.6rem;
      border-bottom: 1px solid rgba(148, 163, 184, 0.2);
      vertical-align: top;
    }
    code {
      font-family: 'SFMono-Regular', Consolas, 'Liberation Mono', Menlo, monospace;
      background: rgba(99, 102, 241, 0.18);
      padding: 2px 5px;
      border-radius: 6px;
      color: #cbd5ff;
    }
    .meta {
      color: #94a3b8;
      font-size: 0.95rem;
    }
  </style>
</head>
<body>
  <article>{{.Content}}</article>
  <h2>Models</h2>
  <table>
    <tr><th>Model</th><th>Description</th><th class="meta">Token budget</th></tr>
    {{range .Models}}<tr><td><code>{{.ID}}</code></td><td>{{.Description}}</td><td class="meta">{{.MaxTokens}}</td></tr>
    {{end}}
  </table>
</body>
</html>`))

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	content, err := renderMarkdown(md, homeMarkdown)
	if err != nil {
		panic(err)
	}

	return &HomeHandler{template: tmpl, content: template.HTML(content)}
}

// ServeHTTP writes the welcome page.
func (h *HomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var buf bytes.Buffer
	if err := h.template.Execute(&buf, homePageData{
		Title:   "FundBridge-GPT",
		Content: h.content,
		Models:  catalog.All(),
	}); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to execute home template", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func renderMarkdown(md goldmark.Markdown, content []byte) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert(content, &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}
