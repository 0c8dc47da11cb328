// Package strapi はテナントスコープのStrapiバックエンドAPIクライアントを提供します。
// クライアントはジョブごとに構築される明示的な値で、プロセス全体の共有状態は持ちません。
package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/yourusername/report-forge/internal/config"
	"github.com/yourusername/report-forge/internal/report"
)

// Strapi Uploadプラグインの添付先を指定する定数です。
const (
	uploadRef   = "api::order.order"
	uploadField = "outputs"
)

// StatusError はAPIの非成功レスポンスを表します。
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

// Client はStrapi APIへのHTTPクライアントです。
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient はテナント設定からクライアントを作成します。
// httpClient が nil の場合は http.DefaultClient を使用します。
func NewClient(tc config.TenantConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(tc.APIBaseURL, "/"),
		token:      tc.APIToken,
		httpClient: httpClient,
	}
}

// FetchReportData はレポートレコードを参照IDで取得します。
func (c *Client) FetchReportData(ctx context.Context, orderRefID string) (*report.ReportData, error) {
	var data report.ReportData
	path := "/api/bot/order-structures/" + url.PathEscape(orderRefID)
	if err := c.getJSON(ctx, path, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// FetchTemplates はテンプレートバンドルをIDで取得します。
func (c *Client) FetchTemplates(ctx context.Context, templateID string) (*report.TemplateBundle, error) {
	var bundle report.TemplateBundle
	path := "/api/report-templates/" + url.PathEscape(templateID)
	if err := c.getJSON(ctx, path, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// uploadedFile はUploadプラグインのレスポンス要素です。
type uploadedFile struct {
	URL string `json:"url"`
}

// UploadArtifact は結合済みPDFをオーダーに添付し、公開URLを返します。
func (c *Client) UploadArtifact(ctx context.Context, orderID, filename string, pdf []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("ref", uploadRef); err != nil {
		return "", fmt.Errorf("failed to write ref field: %w", err)
	}
	if err := writer.WriteField("refId", orderID); err != nil {
		return "", fmt.Errorf("failed to write refId field: %w", err)
	}
	if err := writer.WriteField("field", uploadField); err != nil {
		return "", fmt.Errorf("failed to write field field: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, filename))
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(pdf); err != nil {
		return "", fmt.Errorf("failed to write pdf part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	const path = "/api/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", &StatusError{Method: http.MethodPost, Path: path, StatusCode: resp.StatusCode}
	}

	var files []uploadedFile
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("upload response contained no files")
	}
	return files[0].URL, nil
}

// UpdateOrderStatus はオーダーを完了状態へ更新します。
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string) error {
	payload := map[string]string{
		"status":         "completed",
		"internalStatus": "completed",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal status payload: %w", err)
	}

	path := "/api/bot/orders/" + url.PathEscape(orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if !isSuccess(resp.StatusCode) {
		return &StatusError{Method: http.MethodPut, Path: path, StatusCode: resp.StatusCode}
	}
	return nil
}

// getJSON はGETリクエストを発行し、レスポンスをJSONとして復元します。
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return &StatusError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
