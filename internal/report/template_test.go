package report

import (
	"encoding/json"
	"reflect"
	"sync"
	"testing"
)

const sampleTemplateJSON = `{
	"pdfmeVersion": "5.0.0",
	"basePdf": {
		"width": 210,
		"height": 297,
		"padding": [10, 10, 10, 10],
		"staticSchema": [
			{"name": "logo", "type": "image", "content": "placeholder", "position": {"x": 10, "y": 10}, "width": 40, "height": 20},
			{"name": "address", "type": "text", "content": "", "position": {"x": 60, "y": 10}},
			{"name": "structure_count", "type": "text", "content": "0"}
		]
	},
	"schemas": [[{"name": "remarks", "type": "text"}]]
}`

func parseTemplate(t *testing.T, data string) *Template {
	t.Helper()
	var tmpl Template
	if err := json.Unmarshal([]byte(data), &tmpl); err != nil {
		t.Fatalf("failed to parse template: %v", err)
	}
	return &tmpl
}

func staticContent(t *testing.T, tmpl *Template, name string) string {
	t.Helper()
	for _, f := range tmpl.BasePDF.StaticSchema {
		if f.Name == name {
			return f.Content
		}
	}
	t.Fatalf("field %q not found", name)
	return ""
}

func TestPatchStaticFieldsCopyOnWrite(t *testing.T) {
	source := parseTemplate(t, sampleTemplateJSON)

	patched, missing := source.PatchStaticFields(map[string]string{
		"address": "123 Main St",
	})
	if len(missing) != 0 {
		t.Fatalf("unexpected missing fields: %v", missing)
	}

	if got := staticContent(t, patched, "address"); got != "123 Main St" {
		t.Fatalf("patched address = %q, want %q", got, "123 Main St")
	}
	if got := staticContent(t, source, "address"); got != "" {
		t.Fatalf("source address changed to %q after patch", got)
	}
}

func TestPatchStaticFieldsConcurrentIsolation(t *testing.T) {
	source := parseTemplate(t, sampleTemplateJSON)

	var wg sync.WaitGroup
	results := make([]*Template, 2)
	values := []string{"X", "Y"}
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = source.PatchStaticFields(map[string]string{"address": values[i]})
		}(i)
	}
	wg.Wait()

	if got := staticContent(t, results[0], "address"); got != "X" {
		t.Fatalf("first patch observed %q, want X", got)
	}
	if got := staticContent(t, results[1], "address"); got != "Y" {
		t.Fatalf("second patch observed %q, want Y", got)
	}
	if got := staticContent(t, source, "address"); got != "" {
		t.Fatalf("source address changed to %q", got)
	}
}

func TestPatchStaticFieldsMissingFieldIsNoOp(t *testing.T) {
	source := parseTemplate(t, sampleTemplateJSON)

	patched, missing := source.PatchStaticFields(map[string]string{
		"logo":          "data:image/png;base64,AAAA",
		"no_such_field": "value",
	})
	if len(missing) != 1 || missing[0] != "no_such_field" {
		t.Fatalf("unexpected missing fields: %v", missing)
	}

	// マッチしたフィールドは反映され、それ以外は入力と等価のまま
	if got := staticContent(t, patched, "logo"); got != "data:image/png;base64,AAAA" {
		t.Fatalf("logo = %q", got)
	}
	if got := staticContent(t, patched, "structure_count"); got != "0" {
		t.Fatalf("structure_count = %q, want 0", got)
	}
}

func TestTemplateMarshalPreservesUnknownAttributes(t *testing.T) {
	source := parseTemplate(t, sampleTemplateJSON)

	data, err := json.Marshal(source)
	if err != nil {
		t.Fatalf("failed to marshal template: %v", err)
	}

	var got, want any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("failed to parse marshaled template: %v", err)
	}
	if err := json.Unmarshal([]byte(sampleTemplateJSON), &want); err != nil {
		t.Fatalf("failed to parse sample template: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("marshal round trip changed the template:\ngot:  %v\nwant: %v", got, want)
	}
}

func TestCloneDoesNotAliasRawAttributes(t *testing.T) {
	source := parseTemplate(t, sampleTemplateJSON)
	clone := source.Clone()

	// クローン側の生JSONを書き換えても元に影響しないこと
	for k := range clone.attrs {
		raw := clone.attrs[k]
		if len(raw) > 0 {
			raw[0] = 'x'
		}
	}
	data, err := json.Marshal(source)
	if err != nil {
		t.Fatalf("failed to marshal source after clone mutation: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("source template corrupted by clone mutation: %v", err)
	}
}
