package report

import (
	"context"
	"fmt"
	"strconv"
)

// Kind は1構造物ごとに生成する文書の種別です。閉じた集合で、
// 生成順も summary → roofOutline → annotations → images に固定されています。
type Kind string

const (
	KindSummary     Kind = "summary"
	KindRoofOutline Kind = "roofOutline"
	KindAnnotations Kind = "annotations"
	KindImages      Kind = "images"
)

// Engine はテンプレートと入力から文書バイト列を生成する外部レンダリング機能です。
// レイアウト処理の中身はこのパッケージの関心外です。
type Engine interface {
	Render(ctx context.Context, tmpl *Template, inputs []map[string]any) ([]byte, error)
}

// renderStructure は1構造物分の文書一式を固定順で生成します。
// index は0始まり、count（=index+1）がテンプレートへ注入される通し番号です。
func (s *Service) renderStructure(ctx context.Context, jobID string, index int, sum Summary, st *Structure, tpls *TemplateBundle) ([]RenderedDocument, error) {
	count := index + 1

	// 注記・画像テンプレートには構造物ごとの値をパッチします。
	// 共有バンドルを汚さないよう、パッチは常にディープコピーに対して行われます。
	staticUpdates := map[string]string{
		"structure_count": strconv.Itoa(count),
		"address":         sum.Address,
		"logo":            sum.Logo.URL,
	}
	annotationsTpl := s.patch(jobID, tpls.Annotations, staticUpdates)
	imagesTpl := s.patch(jobID, tpls.Images, staticUpdates)

	docs := make([]RenderedDocument, 0, 4)

	render := func(kind Kind, tmpl *Template, inputs map[string]any) error {
		if tmpl == nil {
			return newError(CodeRender, fmt.Sprintf("構造物 %d の %s テンプレートが見つかりません。", count, kind), nil)
		}
		data, err := s.engine.Render(ctx, tmpl, []map[string]any{inputs})
		if err != nil {
			return newError(CodeRender, fmt.Sprintf("構造物 %d の %s 文書の生成に失敗しました。", count, kind), err)
		}
		docs = append(docs, RenderedDocument{Structure: index, Kind: kind, Data: data})
		s.sink.DocumentRendered(jobID, index, kind)
		return nil
	}

	if err := render(KindSummary, tpls.Summary, summaryInputs(sum, st)); err != nil {
		return nil, err
	}
	if err := render(KindRoofOutline, tpls.RoofOutline, roofOutlineInputs(count, sum, st)); err != nil {
		return nil, err
	}
	if err := render(KindAnnotations, annotationsTpl, annotationsInputs(st.AnnotationsTableData)); err != nil {
		return nil, err
	}
	// ギャラリー文書は画像とテンプレートの両方が存在する場合のみ生成します。
	if len(st.Images) > 0 && imagesTpl != nil {
		if err := render(KindImages, imagesTpl, galleryInputs(st.Images)); err != nil {
			return nil, err
		}
	}

	return docs, nil
}

// patch はテンプレートをパッチし、見つからなかったフィールドを警告として通知します。
func (s *Service) patch(jobID string, tmpl *Template, updates map[string]string) *Template {
	patched, missing := tmpl.PatchStaticFields(updates)
	for _, name := range missing {
		s.sink.FieldNotFound(jobID, name)
	}
	return patched
}

// summaryInputs は集計情報と構造物情報を統合した summary 文書の入力を返します。
// 同名の値は構造物側が優先されます。
func summaryInputs(sum Summary, st *Structure) map[string]any {
	return map[string]any{
		"logo":                   sum.Logo.URL,
		"claim_number":           sum.ClaimNumber,
		"insured_name":           sum.InsuredName,
		"address":                sum.Address,
		"structure_image":        st.StructureImage.URL,
		"roof_outline_image":     st.RoofOutlineImage.URL,
		"roof_perimeter_sqft":    st.RoofPerimeterSqft,
		"roof_area_sqs":          st.RoofAreaSqs,
		"roof_area_sqft":         st.RoofAreaSqft,
		"primary_pitch":          st.PrimaryPitch,
		"notes":                  st.Notes,
		"annotations_table_data": st.AnnotationsTableData,
		"images":                 st.Images,
	}
}

// roofOutlineInputs は roofOutline 文書の固定射影の入力を返します。
func roofOutlineInputs(count int, sum Summary, st *Structure) map[string]any {
	return map[string]any{
		"structure_count":    strconv.Itoa(count),
		"remarks":            st.Notes,
		"address":            sum.Address,
		"logo":               sum.Logo.URL,
		"roof_outline_image": st.RoofOutlineImage.URL,
	}
}

// annotationsInputs は注記テーブルを2段組用に前後半へ分割した入力を返します。
func annotationsInputs(rows []AnnotationRow) map[string]any {
	first, second := splitAnnotationRows(rows)
	return map[string]any{
		"annotations_table_data_1": first,
		"annotations_table_data_2": second,
	}
}

// splitAnnotationRows はテーブルを ceil(len/2) で前後半に分割します。
// 行数が奇数の場合は前半が1行多くなります。
func splitAnnotationRows(rows []AnnotationRow) ([]AnnotationRow, []AnnotationRow) {
	midpoint := (len(rows) + 1) / 2
	return rows[:midpoint], rows[midpoint:]
}

// galleryInputs はギャラリー画像を掲載順の位置キー（img_0, img_1, ...）で返します。
func galleryInputs(images []string) map[string]any {
	inputs := make(map[string]any, len(images))
	for i, uri := range images {
		inputs[fmt.Sprintf("img_%d", i)] = uri
	}
	return inputs
}
