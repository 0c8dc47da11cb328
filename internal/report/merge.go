package report

import (
	"bytes"
	"io"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// mergeDocuments は生成済み文書を受け取った順序のまま1つのPDFへ結合します。
// 順序の組み立ては呼び出し側（パイプライン）の責務で、ここでは並べ替えません。
func mergeDocuments(docs []RenderedDocument) ([]byte, error) {
	if len(docs) == 0 {
		return nil, newError(CodeRender, "結合対象の文書が1件もありません。", nil)
	}

	readers := make([]io.ReadSeeker, len(docs))
	for i, doc := range docs {
		readers[i] = bytes.NewReader(doc.Data)
	}

	var buf bytes.Buffer
	if err := pdfapi.MergeRaw(readers, &buf, false, nil); err != nil {
		return nil, newError(CodeRender, "文書の結合に失敗しました。", err)
	}
	return buf.Bytes(), nil
}
