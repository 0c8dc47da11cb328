// Package report はレポート生成パイプライン（データ取得・画像変換・文書生成・結合・アップロード）を提供します。
package report

// Job は1件のレポート生成依頼を表します。デキュー後は不変です。
type Job struct {
	TemplateID string // 使用するテンプレートバンドルのID
	OrderRefID string // レポートデータ取得用の参照ID
	OrderID    string // ステータス更新・成果物添付先のオーダーID
	Tenant     string // バックエンド接続先を選択するテナントタグ
	// SuppressStatusUpdate が真の場合、完了時のステータス更新を行いません。
	SuppressStatusUpdate bool
}

// ImageRef は画像への参照です。変換前はリモートURL、変換後はデータURIを保持します。
type ImageRef struct {
	URL string `json:"url"`
}

// Summary は全構造物で共有されるレポートの集計情報です。
type Summary struct {
	Logo        ImageRef `json:"logo"`
	ClaimNumber string   `json:"claim_number,omitempty"`
	InsuredName string   `json:"insured_name,omitempty"`
	Address     string   `json:"address"`
}

// AnnotationRow は注記テーブルの1行です。JSONキーはバックエンドの表記そのままです。
type AnnotationRow struct {
	Face  string `json:"FACE"`
	SqFt  string `json:"SQ FT"`
	SQs   string `json:"SQs"`
	Slope string `json:"Slope"`
}

// Structure は1棟分のサブレコードです。
type Structure struct {
	StructureImage       ImageRef        `json:"structure_image"`
	RoofOutlineImage     ImageRef        `json:"roof_outline_image"`
	RoofPerimeterSqft    string          `json:"roof_perimeter_sqft"`
	RoofAreaSqs          string          `json:"roof_area_sqs"`
	RoofAreaSqft         string          `json:"roof_area_sqft"`
	PrimaryPitch         string          `json:"primary_pitch"`
	Notes                string          `json:"notes,omitempty"`
	AnnotationsTableData []AnnotationRow `json:"annotations_table_data"`
	// Images はギャラリー画像のURL（変換後はデータURI）を掲載順で保持します。
	Images []string `json:"images"`
}

// ReportData はバックエンドから取得するレポートレコード全体です。
// Structures の順序はそのまま成果物の文書順になります。
type ReportData struct {
	Summary    Summary     `json:"summary"`
	Structures []Structure `json:"structures"`
}

// RenderedDocument は生成済みの1文書です。構造物インデックスと種別で順序付けられます。
type RenderedDocument struct {
	Structure int
	Kind      Kind
	Data      []byte
}
