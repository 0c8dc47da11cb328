package report

import (
	"context"
	"fmt"
	"log"

	"github.com/yourusername/report-forge/internal/config"
)

// Backend はテナントスコープのコンテンツAPIクライアントが実装します。
// クライアントはジョブごとに構築され、テナント間で共有されません。
type Backend interface {
	FetchReportData(ctx context.Context, orderRefID string) (*ReportData, error)
	FetchTemplates(ctx context.Context, templateID string) (*TemplateBundle, error)
	UploadArtifact(ctx context.Context, orderID, filename string, pdf []byte) (string, error)
	UpdateOrderStatus(ctx context.Context, orderID string) error
}

// BackendFactory は解決済みのテナント設定からクライアントを構築します。
type BackendFactory func(tc config.TenantConfig) Backend

// Service はレポート生成パイプライン全体を実行します。
// 可変の共有状態は持たないため、複数ジョブから同時に呼び出せます。
type Service struct {
	cfg        *config.Config
	engine     Engine
	transcoder *Transcoder
	backendFor BackendFactory
	sink       EventSink
	logger     *log.Logger

	// merge はテストで差し替え可能にするためのフックです。
	merge func(docs []RenderedDocument) ([]byte, error)
}

// NewService は Service を作成します。
func NewService(cfg *config.Config, engine Engine, transcoder *Transcoder, backendFor BackendFactory, sink EventSink, logger *log.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is nil")
	}
	if backendFor == nil {
		return nil, fmt.Errorf("backendFor is nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	if transcoder == nil {
		transcoder = NewTranscoder(nil)
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	return &Service{
		cfg:        cfg,
		engine:     engine,
		transcoder: transcoder,
		backendFor: backendFor,
		sink:       sink,
		logger:     logger,
		merge:      mergeDocuments,
	}, nil
}

// Run は1件のジョブをパイプライン全体にかけ、アップロード済み成果物のURLを返します。
// いずれかの段階で失敗した場合はそこで打ち切り、部分的な成果物は残しません。
// 失敗時にオーダーのステータスは変更されないため、ジョブは最初から安全に再実行できます。
func (s *Service) Run(ctx context.Context, jobID string, job *Job) (string, error) {
	if job == nil {
		return "", newError(CodeConfiguration, "ジョブの内容がありません。", nil)
	}

	// テナント解決。ネットワークアクセスより前に必ず失敗させます。
	tc, err := s.cfg.Tenant(job.Tenant)
	if err != nil {
		return "", newError(CodeConfiguration, fmt.Sprintf("テナント %q を解決できません。", job.Tenant), err)
	}
	backend := s.backendFor(tc)

	// レポートデータとテンプレートバンドルの取得。両方成功するまで先へ進みません。
	data, err := backend.FetchReportData(ctx, job.OrderRefID)
	if err != nil {
		return "", newError(CodeUpstream, "レポートデータの取得に失敗しました。", err)
	}
	tpls, err := backend.FetchTemplates(ctx, job.TemplateID)
	if err != nil {
		return "", newError(CodeUpstream, "テンプレートの取得に失敗しました。", err)
	}
	s.sink.JobStage(jobID, StageDataFetched)

	// 画像参照の解決。レンダリングで消費される前に必ず完了します。
	if err := s.transcoder.TranscodeReport(ctx, data); err != nil {
		return "", err
	}
	s.sink.JobStage(jobID, StageImagesTranscoded)

	// 構造物ごとの文書生成。順序はレコードの掲載順のままです。
	var docs []RenderedDocument
	for i := range data.Structures {
		rendered, err := s.renderStructure(ctx, jobID, i, data.Summary, &data.Structures[i], tpls)
		if err != nil {
			return "", err
		}
		docs = append(docs, rendered...)
	}

	merged, err := s.merge(docs)
	if err != nil {
		return "", err
	}
	s.sink.JobStage(jobID, StageMerged)

	filename := fmt.Sprintf("OD-%s.pdf", job.OrderID)
	artifactURL, err := backend.UploadArtifact(ctx, job.OrderID, filename, merged)
	if err != nil {
		return "", newError(CodeUpload, "成果物のアップロードに失敗しました。", err)
	}
	s.sink.JobStage(jobID, StageUploaded)

	// ステータス更新。抑制指定がある場合のみ、失敗扱いにせずスキップします。
	if job.SuppressStatusUpdate {
		s.sink.JobStage(jobID, StageStatusSkipped)
	} else {
		if err := backend.UpdateOrderStatus(ctx, job.OrderID); err != nil {
			return "", newError(CodeNotification, "オーダーのステータス更新に失敗しました。", err)
		}
		s.sink.JobStage(jobID, StageStatusUpdated)
	}

	return artifactURL, nil
}
