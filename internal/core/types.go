package core

import (
	"encoding/json"
	"time"
)

// Canonical field keys produced by the mapper.
const (
	FieldName          = "name"
	FieldDescription   = "description"
	FieldPrice         = "price"
	FieldMRP           = "mrp"
	FieldPurchasePrice = "purchasePrice"
	FieldStock         = "stock"
	FieldCategory      = "category"
	FieldBrand         = "brand"
	FieldColor         = "color"
	FieldSize          = "size"
	FieldImageURL      = "imageUrl"
	FieldImages        = "images"
	FieldSKU           = "sku"
	FieldHSN           = "hsn"
	FieldWeight        = "weight"
	FieldLength        = "length"
	FieldWidth         = "width"
	FieldHeight        = "height"
	FieldWarranty      = "warranty"
	FieldReturnPolicy  = "returnPolicy"
	FieldTax           = "tax"
)

// MaxImages is the size of a product's image array (primary + 3 additional).
const MaxImages = 4

// Fields is the working record of one CSV row after mapping.
//
// Values are one of:
//   - string: cleaned text, or the raw text of a field that failed to parse
//   - decimal.Decimal: a parsed numeric field
//   - []string: the image array
type Fields map[string]any

// String returns the text value of key, or "" when the key is absent
// or not a string.
func (f Fields) String(key string) string {
	if s, ok := f[key].(string); ok {
		return s
	}
	return ""
}

// Has reports whether key holds a non-empty value.
func (f Fields) Has(key string) bool {
	switch v := f[key].(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []string:
		return len(v) > 0
	default:
		return true
	}
}

// Images returns the image array, or nil.
func (f Fields) Images() []string {
	imgs, _ := f[FieldImages].([]string)
	return imgs
}

// RawRow is one tokenized data line.
type RawRow struct {
	Line   int      // 1-based physical line number; the header is line 1
	Values []string // Tokenized cells
}

// Row is a mapped and validated data row.
type Row struct {
	RowIndex int      `json:"rowIndex"`
	Fields   Fields   `json:"fields"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
}

// SessionState is the lifecycle state of an upload session.
type SessionState string

const (
	StateIdle           SessionState = "idle"
	StateFileSelected   SessionState = "file-selected"
	StatePreviewed      SessionState = "previewed"
	StateUploading      SessionState = "uploading"
	StateSuccess        SessionState = "success"
	StatePartialFailure SessionState = "partial-failure"
	StateHardFailure    SessionState = "hard-failure"
)

// Terminal reports whether the state ends an upload attempt.
func (s SessionState) Terminal() bool {
	switch s {
	case StateSuccess, StatePartialFailure, StateHardFailure:
		return true
	}
	return false
}

// FailedProduct is a record the marketplace did not create.
type FailedProduct struct {
	Name     string   `json:"name"`
	RowIndex int      `json:"rowIndex,omitempty"`
	Errors   []string `json:"errors"`
}

// BatchResponse is the marketplace's answer to one bulk-create request.
type BatchResponse struct {
	Uploaded   int               `json:"uploaded"`
	Successful []json.RawMessage `json:"successful"`
	Failed     []FailedProduct   `json:"failed"`
}

// created returns the number of products the marketplace reports as created.
func (r *BatchResponse) created() int {
	if r.Uploaded > 0 {
		return r.Uploaded
	}
	return len(r.Successful)
}

// BatchOutcome summarises one batch of a batched upload.
type BatchOutcome struct {
	Index     int    `json:"index"`
	Size      int    `json:"size"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// UploadResult is the combined result of a submission.
type UploadResult struct {
	Total      int               `json:"total"`
	Uploaded   int               `json:"uploaded"`
	Successful []json.RawMessage `json:"successful"`
	Failed     []FailedProduct   `json:"failed"`
	Batched    bool              `json:"batched"`
	Batches    []BatchOutcome    `json:"batches,omitempty"`
	DurationMs int64             `json:"durationMs"`
}

// FailedCount returns the number of records that were not created.
func (r *UploadResult) FailedCount() int {
	return len(r.Failed)
}

// Merge folds another result into r.
func (r *UploadResult) Merge(other *UploadResult) {
	if other == nil {
		return
	}
	r.Total += other.Total
	r.Uploaded += other.Uploaded
	r.Successful = append(r.Successful, other.Successful...)
	r.Failed = append(r.Failed, other.Failed...)
	r.Batches = append(r.Batches, other.Batches...)
}

// Outcome classifies the result into a terminal session state.
func (r *UploadResult) Outcome() SessionState {
	switch {
	case r.Uploaded == 0:
		return StateHardFailure
	case len(r.Failed) > 0:
		return StatePartialFailure
	default:
		return StateSuccess
	}
}

// SessionSnapshot is a read-only view of an upload session.
type SessionSnapshot struct {
	ID        string          `json:"id"`
	SellerID  string          `json:"sellerId"`
	State     SessionState    `json:"state"`
	FileName  string          `json:"fileName,omitempty"`
	FileSize  int64           `json:"fileSize,omitempty"`
	Summary   *PreviewSummary `json:"summary,omitempty"`
	Progress  *UploadProgress `json:"progress,omitempty"`
	Result    *UploadResult   `json:"result,omitempty"`
	Error     *UserMessage    `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
