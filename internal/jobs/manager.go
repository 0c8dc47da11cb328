package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yourusername/report-forge/internal/config"
	"github.com/yourusername/report-forge/internal/report"
)

const (
	taskTypeReport = "report:generate"
	queueReports   = "reports"
)

// Manager はレポートジョブの投入と消費を担います。
// 同時実行数の上限は asynq サーバーの Concurrency 設定が保証します。
type Manager struct {
	cfg           *config.Config
	client        *asynq.Client
	server        *asynq.Server
	mux           *asynq.ServeMux
	store         *Store
	reportService *report.Service
	logger        *log.Logger
}

// TaskPayload はレポート生成ジョブのペイロードです。フィールド名は
// 投入側（bot）が使用するワイヤーフォーマットに合わせています。
type TaskPayload struct {
	JobID                      string `json:"jobId"`
	TemplateID                 string `json:"templateId"`
	OrderRefID                 string `json:"orderRefId"`
	OrderID                    string `json:"orderId"`
	Referrer                   string `json:"referrer"`
	SuppressClientNotification bool   `json:"suppressClientNotification,omitempty"`
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, reportService *report.Service, store *Store, logger *log.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if reportService == nil {
		return nil, errors.New("reportService is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				queueReports: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		cfg:           cfg,
		client:        client,
		server:        server,
		mux:           mux,
		store:         store,
		reportService: reportService,
		logger:        logger,
	}
	mux.HandleFunc(taskTypeReport, manager.handleReportTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			if m.logger != nil {
				m.logger.Printf("asynq server stopped with error: %v", err)
			} else {
				log.Printf("asynq server stopped with error: %v", err)
			}
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	m.client.Close()
	return nil
}

// Enqueue はジョブをキューに投入します。
func (m *Manager) Enqueue(ctx context.Context, payload *TaskPayload) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("payload is nil")
	}
	if payload.JobID == "" {
		return "", fmt.Errorf("payload.JobID is required")
	}

	record := &Record{
		JobID:      payload.JobID,
		TemplateID: payload.TemplateID,
		OrderRefID: payload.OrderRefID,
		OrderID:    payload.OrderID,
		Tenant:     payload.Referrer,
		Status:     StatusQueued,
		Progress: ProgressInfo{
			Percent: 0,
			Stage:   "queued",
		},
	}
	if err := m.store.Upsert(ctx, record); err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(taskTypeReport, body, asynq.Queue(queueReports))
	info, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(1))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// GetRecord はジョブ情報を取得します。
func (m *Manager) GetRecord(ctx context.Context, jobID string) (*Record, error) {
	return m.store.Get(ctx, jobID)
}

func (m *Manager) handleReportTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if payload.JobID == "" {
		return fmt.Errorf("missing jobId in payload")
	}

	if err := m.store.Upsert(ctx, &Record{
		JobID:      payload.JobID,
		TemplateID: payload.TemplateID,
		OrderRefID: payload.OrderRefID,
		OrderID:    payload.OrderID,
		Tenant:     payload.Referrer,
		Status:     StatusRunning,
		Progress: ProgressInfo{
			Percent: 0,
			Stage:   "received",
		},
	}); err != nil {
		return err
	}

	// ジョブ全体のタイムアウト。部分的な成果物が残らないよう、
	// パイプライン全体を包むデッドラインとして適用します。
	if m.cfg.JobTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.JobTimeoutSeconds)*time.Second)
		defer cancel()
	}

	job := &report.Job{
		TemplateID:           payload.TemplateID,
		OrderRefID:           payload.OrderRefID,
		OrderID:              payload.OrderID,
		Tenant:               payload.Referrer,
		SuppressStatusUpdate: payload.SuppressClientNotification,
	}

	artifactURL, err := m.reportService.Run(ctx, payload.JobID, job)
	if err != nil {
		m.recordFailure(ctx, payload.JobID, err)
		if m.logger != nil {
			m.logger.Printf("report job %s failed: %v", payload.JobID, err)
		}
		// リトライの判断は外部キューの契約に委ねるため、エラーをそのまま返します。
		return err
	}

	if err := m.store.MarkDone(ctx, payload.JobID, artifactURL); err != nil {
		return err
	}
	if m.logger != nil {
		m.logger.Printf("report job %s completed: %s", payload.JobID, artifactURL)
	}
	return nil
}

func (m *Manager) recordFailure(ctx context.Context, jobID string, err error) {
	info := &ErrorInfo{
		Code:    "INTERNAL_ERROR",
		Message: err.Error(),
	}
	var apiErr *report.Error
	if errors.As(err, &apiErr) {
		info.Code = apiErr.Code
		info.Message = apiErr.Message
	}
	if storeErr := m.store.MarkFailed(ctx, jobID, info); storeErr != nil && m.logger != nil {
		m.logger.Printf("failed to record failure for job=%s: %v", jobID, storeErr)
	}
}
