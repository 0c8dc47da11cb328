// Package renderer はpdfmeレンダリングサービスへのHTTPクライアントを提供します。
// レイアウト・ラスタライズの実体は外部サービス側にあり、ここでは
// 「テンプレート + 入力 → PDFバイト列」という能力のみを扱います。
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yourusername/report-forge/internal/report"
)

// HTTPEngine は report.Engine のHTTP実装です。
type HTTPEngine struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPEngine は HTTPEngine を作成します。
// httpClient が nil の場合は http.DefaultClient を使用します。
func NewHTTPEngine(baseURL string, httpClient *http.Client) *HTTPEngine {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPEngine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// renderRequest はレンダリングサービスへのリクエストボディです。
type renderRequest struct {
	Template *report.Template `json:"template"`
	Inputs   []map[string]any `json:"inputs"`
}

// Render はテンプレートと入力をレンダリングサービスへ送り、PDFバイト列を受け取ります。
func (e *HTTPEngine) Render(ctx context.Context, tmpl *report.Template, inputs []map[string]any) ([]byte, error) {
	body, err := json.Marshal(renderRequest{Template: tmpl, Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call renderer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("renderer returned status %d", resp.StatusCode)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered document: %w", err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("renderer returned an empty document")
	}
	return pdf, nil
}
