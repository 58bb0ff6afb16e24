package prompts

import (
	"strings"
	"testing"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		key      Key
		wantText string
	}{
		{key: KeyEarnings, wantText: earningsText},
		{key: KeyShort, wantText: shortText},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got := Select(tt.key)
			if got.Text != tt.wantText {
				t.Errorf("Select(%q).Text differs from the registered template", tt.key)
			}
			if got.Key != tt.key {
				t.Errorf("Select(%q).Key = %q", tt.key, got.Key)
			}
			if strings.Count(got.Text, Placeholder) != 1 {
				t.Errorf("Select(%q) template must contain exactly one %s", tt.key, Placeholder)
			}
		})
	}
}

func TestSelect_UnknownKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Select() with unknown key should panic")
		}
	}()
	Select(Key("haiku"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Key
		wantOK bool
	}{
		{name: "exact", input: "short", want: KeyShort, wantOK: true},
		{name: "case and spaces", input: "  Earnings ", want: KeyEarnings, wantOK: true},
		{name: "unknown", input: "haiku", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTemplate_Render(t *testing.T) {
	tmpl := Select(KeyShort)
	doc := "Revenue grew 12% to $4.1B."

	got := tmpl.Render(doc)

	if strings.Contains(got, Placeholder) {
		t.Error("Render() left the placeholder in place")
	}
	if !strings.Contains(got, doc) {
		t.Error("Render() output does not contain the document text")
	}
	if got != strings.Replace(shortText, Placeholder, doc, 1) {
		t.Error("Render() output differs from template with substituted text")
	}
}

func TestTemplate_RenderKeepsPlaceholderInDocument(t *testing.T) {
	doc := "literal {text} inside the document"
	got := Select(KeyShort).Render(doc)
	if !strings.Contains(got, doc) {
		t.Error("Render() must substitute only the template placeholder")
	}
}

func TestAll(t *testing.T) {
	all := All()
	if len(all) != len(registry) {
		t.Fatalf("All() returned %d templates, want %d", len(all), len(registry))
	}
	if all[0].Key != KeyShort {
		t.Errorf("All()[0].Key = %q, want %q", all[0].Key, KeyShort)
	}
}
