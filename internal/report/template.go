package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// TemplateBundle は文書種別ごとのテンプレート定義の集まりです。
// 同一インスタンスが複数ジョブで再利用されるため、ジョブごとの加工は
// 必ず PatchStaticFields（ディープコピー）経由で行います。
type TemplateBundle struct {
	Summary     *Template `json:"summaryTemplate"`
	RoofOutline *Template `json:"roofOutlineTemplate"`
	Annotations *Template `json:"annotationsTemplate"`
	Images      *Template `json:"imagesTemplate,omitempty"`
}

// Template は1文書分のテンプレート定義です。
// 静的フィールド（basePdf.staticSchema）のみ型付きで扱い、
// それ以外の要素（schemas等）はレンダリングエンジンへそのまま渡すため
// 生のJSONとして保持します。
type Template struct {
	BasePDF BasePDF
	attrs   map[string]json.RawMessage
}

// BasePDF はテンプレートの下地定義です。staticSchema 以外の属性
// （幅・高さ・余白など）は生のまま保持します。
type BasePDF struct {
	StaticSchema []StaticField
	attrs        map[string]json.RawMessage
	// 下地がオブジェクトではない場合（データURL文字列等）はそのまま保持します。
	raw json.RawMessage
}

// StaticField は staticSchema 内の1フィールドです。
// name と content のみ型付きで扱い、位置やサイズなどの属性は生のまま保持します。
type StaticField struct {
	Name    string
	Content string

	attrs      map[string]json.RawMessage
	contentSet bool
}

// UnmarshalJSON は既知のキーを取り出し、残りを生のまま退避します。
func (t *Template) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	if raw, ok := m["basePdf"]; ok {
		if err := json.Unmarshal(raw, &t.BasePDF); err != nil {
			return err
		}
		delete(m, "basePdf")
	}
	t.attrs = m
	return nil
}

// MarshalJSON は退避していた属性と合わせて元の形のJSONを再構成します。
func (t Template) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(t.attrs)+1)
	for k, v := range t.attrs {
		m[k] = v
	}
	base, err := json.Marshal(t.BasePDF)
	if err != nil {
		return nil, err
	}
	m["basePdf"] = base
	return json.Marshal(m)
}

func (b *BasePDF) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		b.raw = append(json.RawMessage(nil), data...)
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to parse basePdf: %w", err)
	}
	if raw, ok := m["staticSchema"]; ok {
		if err := json.Unmarshal(raw, &b.StaticSchema); err != nil {
			return err
		}
		delete(m, "staticSchema")
	}
	b.attrs = m
	return nil
}

func (b BasePDF) MarshalJSON() ([]byte, error) {
	if b.raw != nil {
		return b.raw, nil
	}
	m := make(map[string]json.RawMessage, len(b.attrs)+1)
	for k, v := range b.attrs {
		m[k] = v
	}
	if b.StaticSchema != nil {
		schema, err := json.Marshal(b.StaticSchema)
		if err != nil {
			return nil, err
		}
		m["staticSchema"] = schema
	}
	return json.Marshal(m)
}

func (f *StaticField) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to parse static field: %w", err)
	}
	if raw, ok := m["name"]; ok {
		if err := json.Unmarshal(raw, &f.Name); err != nil {
			return err
		}
		delete(m, "name")
	}
	if raw, ok := m["content"]; ok {
		if err := json.Unmarshal(raw, &f.Content); err != nil {
			return err
		}
		f.contentSet = true
		delete(m, "content")
	}
	f.attrs = m
	return nil
}

func (f StaticField) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(f.attrs)+2)
	for k, v := range f.attrs {
		m[k] = v
	}
	name, err := json.Marshal(f.Name)
	if err != nil {
		return nil, err
	}
	m["name"] = name
	if f.contentSet {
		content, err := json.Marshal(f.Content)
		if err != nil {
			return nil, err
		}
		m["content"] = content
	}
	return json.Marshal(m)
}

// Clone はテンプレートの構造的なディープコピーを返します。
// 返り値を変更しても元のテンプレートや他ジョブのコピーには影響しません。
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	return &Template{
		BasePDF: t.BasePDF.clone(),
		attrs:   cloneRawMap(t.attrs),
	}
}

func (b BasePDF) clone() BasePDF {
	c := BasePDF{
		attrs: cloneRawMap(b.attrs),
		raw:   cloneRaw(b.raw),
	}
	if b.StaticSchema != nil {
		c.StaticSchema = make([]StaticField, len(b.StaticSchema))
		for i, f := range b.StaticSchema {
			c.StaticSchema[i] = f.clone()
		}
	}
	return c
}

func (f StaticField) clone() StaticField {
	return StaticField{
		Name:       f.Name,
		Content:    f.Content,
		attrs:      cloneRawMap(f.attrs),
		contentSet: f.contentSet,
	}
}

func cloneRawMap(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	c := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		c[k] = cloneRaw(v)
	}
	return c
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

// PatchStaticFields は staticSchema の同名フィールドを上書きした新しい
// テンプレートを返します。元のテンプレートは一切変更しません。
// 見つからなかったフィールド名は2番目の返り値で報告します（致命的エラーではありません）。
func (t *Template) PatchStaticFields(updates map[string]string) (*Template, []string) {
	patched := t.Clone()
	if patched == nil {
		return nil, nil
	}

	names := make([]string, 0, len(updates))
	for name := range updates {
		names = append(names, name)
	}
	sort.Strings(names)

	var missing []string
	for _, name := range names {
		found := false
		for i := range patched.BasePDF.StaticSchema {
			if patched.BasePDF.StaticSchema[i].Name == name {
				patched.BasePDF.StaticSchema[i].Content = updates[name]
				patched.BasePDF.StaticSchema[i].contentSet = true
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	return patched, missing
}
