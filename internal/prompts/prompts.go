// Package prompts holds the closed set of summary prompt templates.
package prompts

import (
	"fmt"
	"strings"
)

// Placeholder marks where the document text goes in a template.
const Placeholder = "{text}"

// Key names a registered template.
type Key string

// Registered template keys.
const (
	KeyEarnings Key = "earnings"
	KeyShort    Key = "short"
)

// Template is an immutable prompt with a single document placeholder.
type Template struct {
	Key         Key    `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Text        string `json:"text"`
}

// Render substitutes text for the placeholder.
func (t Template) Render(text string) string {
	return strings.Replace(t.Text, Placeholder, text, 1)
}

const earningsText = `Summarize key takeaways in the transcript of an earnings call.  In your summary, address the following points about financial performance metrics one-by-one.

- Financial ratios highlighted and their implications
- Any comparisons of financial metrics to previous quarters (quarter-over-quarter) or years (year-over-year).
- Performance of any major business lines discussed.
- Any significant changes in operating income and free cashflow and their potential causes.
- Extract mentions of returning cash to shareholders through dividends or share buybacks.
- Discuss the company's budgeting and forecasting approaches mentioned.
- Discuss significant strategic initiatives or changes.  Discuss any new business ventures or mergers and acquisitions.

Additional Guidelines:

- Present points in bullet point form only.
- Include as much detail as possible. More detail is better.
- Include numeric figures where relevant.

TRANSCRIPT:
{text}

Respond with the following headers:
------------
FINANCIAL PERFORMANCE & METRICS:

BUSINESS LINE PERFORMANCE:

OPERATING INCOME & CASH FLOW:

SHAREHOLDER RETURN:

FINANCIAL FORECASTS:

STRATEGIC MATTERS OR MERGERS & ACQUISITIONS:

`

const shortText = `Write a concise summary of the following document in no more than five sentences.
Keep names, dates and figures exactly as written.

DOCUMENT:
{text}

CONCISE SUMMARY:`

var registry = map[Key]Template{
	KeyEarnings: {
		Key:         KeyEarnings,
		Title:       "Earnings call summary",
		Description: "Bullet-point takeaways from an earnings call transcript under fixed financial headers.",
		Text:        earningsText,
	},
	KeyShort: {
		Key:         KeyShort,
		Title:       "Short summary",
		Description: "A concise generic summary of any document.",
		Text:        shortText,
	},
}

// order is the display order for All.
var order = []Key{KeyShort, KeyEarnings}

// Select returns the template registered under key.
// The key set is closed, so an unknown key is a programming error and panics.
func Select(key Key) Template {
	t, ok := registry[key]
	if !ok {
		panic(fmt.Sprintf("prompts: unknown template key %q", key))
	}
	return t
}

// Parse converts untrusted input into a registered Key.
func Parse(name string) (Key, bool) {
	key := Key(strings.ToLower(strings.TrimSpace(name)))
	_, ok := registry[key]
	return key, ok
}

// All returns every registered template in display order.
func All() []Template {
	out := make([]Template, 0, len(order))
	for _, k := range order {
		out = append(out, registry[k])
	}
	return out
}
