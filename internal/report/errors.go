package report

import "fmt"

// エラーコードはパイプラインの失敗段階を表す閉じた集合です。
const (
	CodeConfiguration = "CONFIGURATION_ERROR" // テナント解決に失敗
	CodeUpstream      = "UPSTREAM_ERROR"      // データ/テンプレート取得の非成功レスポンス
	CodeTranscode     = "TRANSCODE_ERROR"     // 必須画像の取得に失敗
	CodeRender        = "RENDER_ERROR"        // 文書生成の失敗、または結合対象が0件
	CodeUpload        = "UPLOAD_ERROR"        // 成果物アップロードの失敗
	CodeNotification  = "NOTIFICATION_ERROR"  // ステータス更新の失敗
)

// Error はレポート生成パイプラインのジョブ失敗を表します。
// すべてのエラーはジョブ全体を失敗させます（部分的な成果物は残しません）。
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap は元となったエラーを返します。
func (e *Error) Unwrap() error {
	return e.cause
}

func newError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}
