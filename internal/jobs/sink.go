package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/yourusername/report-forge/internal/report"
)

// progressStore は進捗の保存先です（テストで差し替え可能）。
type progressStore interface {
	UpdateProgress(ctx context.Context, jobID string, progress ProgressInfo) error
}

// ProgressSink はパイプラインの段階イベントをジョブレコードの進捗へ反映する
// report.EventSink 実装です。
type ProgressSink struct {
	store  progressStore
	logger *log.Logger
}

// NewProgressSink は ProgressSink を作成します。
func NewProgressSink(store progressStore, logger *log.Logger) *ProgressSink {
	if logger == nil {
		logger = log.Default()
	}
	return &ProgressSink{store: store, logger: logger}
}

// 各段階の概算進捗率です。文書生成は件数が事前に分からないため一律の値を使います。
var stagePercent = map[report.Stage]int{
	report.StageDataFetched:      20,
	report.StageImagesTranscoded: 40,
	report.StageMerged:           80,
	report.StageUploaded:         90,
	report.StageStatusUpdated:    95,
	report.StageStatusSkipped:    95,
}

// JobStage は段階遷移を進捗として保存します。
func (s *ProgressSink) JobStage(jobID string, stage report.Stage) {
	percent, ok := stagePercent[stage]
	if !ok {
		percent = 0
	}
	s.update(jobID, ProgressInfo{
		Percent: percent,
		Stage:   string(stage),
	})
}

// DocumentRendered は文書生成の進行を進捗として保存します。
func (s *ProgressSink) DocumentRendered(jobID string, structure int, kind report.Kind) {
	s.update(jobID, ProgressInfo{
		Percent: 60,
		Stage:   "rendering",
		Message: fmt.Sprintf("structure %d: %s", structure+1, kind),
	})
}

// FieldNotFound はテンプレートに無いフィールドへのパッチを警告ログに残します。
func (s *ProgressSink) FieldNotFound(jobID string, field string) {
	s.logger.Printf("job=%s warning: field %q not found in staticSchema", jobID, field)
}

func (s *ProgressSink) update(jobID string, progress ProgressInfo) {
	if err := s.store.UpdateProgress(context.Background(), jobID, progress); err != nil {
		s.logger.Printf("failed to update progress job=%s: %v", jobID, err)
	}
}
