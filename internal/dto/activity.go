package dto

// CreateCommentRequest appends a comment.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// PageQuery captures pagination parameters.
type PageQuery struct {
	Page     int `form:"page" validate:"gte=0"`
	PageSize int `form:"pageSize" validate:"gte=0,lte=200"`
}

// ExportFormat selects the rendering of a history export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
