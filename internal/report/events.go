package report

import "log"

// Stage はジョブの進行段階を表します。
type Stage string

const (
	StageDataFetched      Stage = "data_fetched"
	StageImagesTranscoded Stage = "images_transcoded"
	StageMerged           Stage = "merged"
	StageUploaded         Stage = "uploaded"
	StageStatusUpdated    Stage = "status_updated"
	StageStatusSkipped    Stage = "status_skipped"
)

// EventSink はパイプラインの節目で呼び出される観測用のインターフェースです。
// テストではログ出力を捕捉する代わりに、発行されたイベントを直接検証できます。
type EventSink interface {
	// JobStage はジョブが次の段階へ遷移したことを通知します。
	JobStage(jobID string, stage Stage)
	// DocumentRendered は1文書の生成完了を通知します（structureは0始まり）。
	DocumentRendered(jobID string, structure int, kind Kind)
	// FieldNotFound はテンプレートに存在しないフィールドへのパッチを通知します。
	FieldNotFound(jobID string, field string)
}

// logSink は EventSink のデフォルト実装で、ロガーへ出力します。
type logSink struct {
	logger *log.Logger
}

// NewLogSink はロガーに書き出す EventSink を返します。
func NewLogSink(logger *log.Logger) EventSink {
	if logger == nil {
		logger = log.Default()
	}
	return &logSink{logger: logger}
}

func (s *logSink) JobStage(jobID string, stage Stage) {
	s.logger.Printf("job=%s stage=%s", jobID, stage)
}

func (s *logSink) DocumentRendered(jobID string, structure int, kind Kind) {
	s.logger.Printf("job=%s rendered structure=%d kind=%s", jobID, structure, kind)
}

func (s *logSink) FieldNotFound(jobID string, field string) {
	s.logger.Printf("job=%s warning: field %q not found in staticSchema", jobID, field)
}
