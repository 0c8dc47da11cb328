package report

import (
	"context"
	"fmt"
	"log"
	"testing"

	"github.com/yourusername/report-forge/internal/config"
)

// fakeEngine は入力のキー構成から文書種別を判別して記録するスタブです。
type fakeEngine struct {
	calls []Kind
	err   error
}

func (e *fakeEngine) Render(_ context.Context, _ *Template, inputs []map[string]any) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	kind := classifyInputs(inputs[0])
	e.calls = append(e.calls, kind)
	return []byte("pdf:" + string(kind)), nil
}

func classifyInputs(in map[string]any) Kind {
	if _, ok := in["structure_image"]; ok {
		return KindSummary
	}
	if _, ok := in["remarks"]; ok {
		return KindRoofOutline
	}
	if _, ok := in["annotations_table_data_1"]; ok {
		return KindAnnotations
	}
	return KindImages
}

// recordingSink はイベントを記録する EventSink です。
type recordingSink struct {
	stages   []Stage
	rendered []string
	missing  []string
}

func (s *recordingSink) JobStage(_ string, stage Stage) {
	s.stages = append(s.stages, stage)
}

func (s *recordingSink) DocumentRendered(_ string, structure int, kind Kind) {
	s.rendered = append(s.rendered, fmt.Sprintf("%d/%s", structure, kind))
}

func (s *recordingSink) FieldNotFound(_ string, field string) {
	s.missing = append(s.missing, field)
}

func testConfig() *config.Config {
	return &config.Config{
		WorkerConcurrency: 1,
		Tenants: map[string]config.TenantConfig{
			"roofingcad": {APIBaseURL: "http://backend.test", APIToken: "token"},
		},
	}
}

func newTestService(t *testing.T, engine Engine, backendFor BackendFactory, sink EventSink) *Service {
	t.Helper()
	svc, err := NewService(testConfig(), engine, NewTranscoder(nil), backendFor, sink, log.Default())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func testBundle(t *testing.T, withImages bool) *TemplateBundle {
	t.Helper()
	bundle := &TemplateBundle{
		Summary:     parseTemplate(t, sampleTemplateJSON),
		RoofOutline: parseTemplate(t, sampleTemplateJSON),
		Annotations: parseTemplate(t, sampleTemplateJSON),
	}
	if withImages {
		bundle.Images = parseTemplate(t, sampleTemplateJSON)
	}
	return bundle
}

func TestSplitAnnotationRows(t *testing.T) {
	for _, length := range []int{0, 1, 2, 7} {
		rows := make([]AnnotationRow, length)
		for i := range rows {
			rows[i] = AnnotationRow{Face: fmt.Sprintf("F%d", i)}
		}

		first, second := splitAnnotationRows(rows)

		wantFirst := (length + 1) / 2
		if len(first) != wantFirst {
			t.Fatalf("length %d: first half has %d rows, want %d", length, len(first), wantFirst)
		}
		if len(second) != length-wantFirst {
			t.Fatalf("length %d: second half has %d rows, want %d", length, len(second), length-wantFirst)
		}

		// 前後半を連結すると元の並びに戻ること
		for i, row := range append(append([]AnnotationRow{}, first...), second...) {
			if row.Face != fmt.Sprintf("F%d", i) {
				t.Fatalf("length %d: row %d out of order: %q", length, i, row.Face)
			}
		}
	}
}

func TestGalleryInputsPreserveOrder(t *testing.T) {
	inputs := galleryInputs([]string{"data:a", "data:b", "data:c"})
	for i, want := range []string{"data:a", "data:b", "data:c"} {
		key := fmt.Sprintf("img_%d", i)
		if inputs[key] != want {
			t.Fatalf("%s = %v, want %q", key, inputs[key], want)
		}
	}
	if len(inputs) != 3 {
		t.Fatalf("unexpected input count: %d", len(inputs))
	}
}

func TestSummaryInputsMergeStructureWins(t *testing.T) {
	sum := Summary{
		Logo:    ImageRef{URL: "data:logo"},
		Address: "123 Main St",
	}
	st := &Structure{
		StructureImage: ImageRef{URL: "data:structure"},
		Notes:          "needs repair",
		PrimaryPitch:   "6/12",
	}

	in := summaryInputs(sum, st)

	if in["logo"] != "data:logo" {
		t.Fatalf("logo = %v", in["logo"])
	}
	if in["structure_image"] != "data:structure" {
		t.Fatalf("structure_image = %v", in["structure_image"])
	}
	if in["notes"] != "needs repair" {
		t.Fatalf("notes = %v", in["notes"])
	}
	if in["address"] != "123 Main St" {
		t.Fatalf("address = %v", in["address"])
	}
}

func TestRenderStructureKindOrder(t *testing.T) {
	engine := &fakeEngine{}
	sink := &recordingSink{}
	svc := newTestService(t, engine, func(config.TenantConfig) Backend { return nil }, sink)

	st := &Structure{
		StructureImage:       ImageRef{URL: "data:structure"},
		RoofOutlineImage:     ImageRef{URL: "data:outline"},
		AnnotationsTableData: []AnnotationRow{{Face: "N"}},
		Images:               []string{"data:g0", "data:g1"},
	}

	docs, err := svc.renderStructure(context.Background(), "job-1", 0, Summary{Address: "A"}, st, testBundle(t, true))
	if err != nil {
		t.Fatalf("renderStructure returned error: %v", err)
	}

	wantKinds := []Kind{KindSummary, KindRoofOutline, KindAnnotations, KindImages}
	if len(docs) != len(wantKinds) {
		t.Fatalf("unexpected document count: %d", len(docs))
	}
	for i, want := range wantKinds {
		if docs[i].Kind != want {
			t.Fatalf("docs[%d].Kind = %s, want %s", i, docs[i].Kind, want)
		}
		if docs[i].Structure != 0 {
			t.Fatalf("docs[%d].Structure = %d", i, docs[i].Structure)
		}
	}
}

func TestRenderStructureSkipsImagesWithoutGallery(t *testing.T) {
	engine := &fakeEngine{}
	svc := newTestService(t, engine, func(config.TenantConfig) Backend { return nil }, &recordingSink{})

	st := &Structure{
		StructureImage:   ImageRef{URL: "data:structure"},
		RoofOutlineImage: ImageRef{URL: "data:outline"},
	}

	docs, err := svc.renderStructure(context.Background(), "job-1", 0, Summary{}, st, testBundle(t, true))
	if err != nil {
		t.Fatalf("renderStructure returned error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("unexpected document count: %d", len(docs))
	}
	for _, doc := range docs {
		if doc.Kind == KindImages {
			t.Fatal("images document produced without a gallery")
		}
	}
}

func TestRenderStructureSkipsImagesWithoutTemplate(t *testing.T) {
	engine := &fakeEngine{}
	svc := newTestService(t, engine, func(config.TenantConfig) Backend { return nil }, &recordingSink{})

	st := &Structure{
		StructureImage:   ImageRef{URL: "data:structure"},
		RoofOutlineImage: ImageRef{URL: "data:outline"},
		Images:           []string{"data:g0"},
	}

	docs, err := svc.renderStructure(context.Background(), "job-1", 0, Summary{}, st, testBundle(t, false))
	if err != nil {
		t.Fatalf("renderStructure returned error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("unexpected document count: %d", len(docs))
	}
}

func TestRenderStructureFailureCarriesKind(t *testing.T) {
	engine := &fakeEngine{err: fmt.Errorf("boom")}
	svc := newTestService(t, engine, func(config.TenantConfig) Backend { return nil }, &recordingSink{})

	st := &Structure{
		StructureImage:   ImageRef{URL: "data:structure"},
		RoofOutlineImage: ImageRef{URL: "data:outline"},
	}

	_, err := svc.renderStructure(context.Background(), "job-1", 2, Summary{}, st, testBundle(t, false))
	if err == nil {
		t.Fatal("expected error from failing engine")
	}
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("unexpected error type: %T", err)
	}
	if apiErr.Code != CodeRender {
		t.Fatalf("unexpected code: %s", apiErr.Code)
	}
}
