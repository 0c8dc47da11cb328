package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

// ギャラリー画像の同時取得数の上限です。
const galleryFetchConcurrency = 4

// Transcoder はリモート画像を埋め込み可能なデータURIへ変換します。
type Transcoder struct {
	client *http.Client
}

// NewTranscoder は Transcoder を作成します。client が nil の場合は
// http.DefaultClient を使用します。
func NewTranscoder(client *http.Client) *Transcoder {
	if client == nil {
		client = http.DefaultClient
	}
	return &Transcoder{client: client}
}

// DataURI は画像URLを取得し data:<mime>;base64,<payload> 形式の文字列を返します。
// メディアタイプはレスポンスの Content-Type ヘッダーから決定し、
// ヘッダーが無い（または汎用値の）場合は内容から推定します。
func (t *Transcoder) DataURI(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("image fetch returned status %d: %s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image body: %w", err)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = mimetype.Detect(data).String()
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// TranscodeReport はレコード内の全画像参照をデータURIへ解決します。
// 参照が空の場合はスキップし、存在するのに取得できない場合はジョブを失敗させます。
// ギャラリーは並行取得しますが、結果は元の掲載順を保ちます。
func (t *Transcoder) TranscodeReport(ctx context.Context, data *ReportData) error {
	if data == nil {
		return newError(CodeTranscode, "レポートデータがありません。", nil)
	}

	if data.Summary.Logo.URL != "" {
		uri, err := t.DataURI(ctx, data.Summary.Logo.URL)
		if err != nil {
			return newError(CodeTranscode, "ロゴ画像の変換に失敗しました。", err)
		}
		data.Summary.Logo.URL = uri
	}

	for i := range data.Structures {
		st := &data.Structures[i]

		if st.StructureImage.URL != "" {
			uri, err := t.DataURI(ctx, st.StructureImage.URL)
			if err != nil {
				return newError(CodeTranscode, fmt.Sprintf("構造物 %d の外観画像の変換に失敗しました。", i+1), err)
			}
			st.StructureImage.URL = uri
		}

		if st.RoofOutlineImage.URL != "" {
			uri, err := t.DataURI(ctx, st.RoofOutlineImage.URL)
			if err != nil {
				return newError(CodeTranscode, fmt.Sprintf("構造物 %d の屋根外形画像の変換に失敗しました。", i+1), err)
			}
			st.RoofOutlineImage.URL = uri
		}

		if len(st.Images) > 0 {
			if err := t.transcodeGallery(ctx, st.Images); err != nil {
				return newError(CodeTranscode, fmt.Sprintf("構造物 %d のギャラリー画像の変換に失敗しました。", i+1), err)
			}
		}
	}

	return nil
}

// transcodeGallery はギャラリー画像を並行して変換し、結果をインデックス位置に書き戻します。
func (t *Transcoder) transcodeGallery(ctx context.Context, images []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(galleryFetchConcurrency)

	results := make([]string, len(images))
	for idx, u := range images {
		if u == "" {
			continue
		}
		g.Go(func() error {
			uri, err := t.DataURI(gctx, u)
			if err != nil {
				return err
			}
			results[idx] = uri
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for idx := range results {
		if results[idx] != "" {
			images[idx] = results[idx]
		}
	}
	return nil
}
