package models

import "time"

// BytesPerMB converts byte counts into the decimal megabytes stored on versions.
const BytesPerMB = 1024 * 1024

// DocumentVersion is one immutable upload of a document.
type DocumentVersion struct {
	ID            string    `db:"id" json:"id"`
	DocumentID    string    `db:"document_id" json:"documentId"`
	VersionNumber int       `db:"version_number" json:"versionNumber"`
	FilePath      string    `db:"file_path" json:"filePath"`
	FileSize      float64   `db:"file_size" json:"fileSize"`
	MimeType      string    `db:"mime_type" json:"mimeType"`
	UploadedBy    string    `db:"uploaded_by" json:"uploadedBy"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// VersionListItem annotates a version with whether it is the document's current one.
type VersionListItem struct {
	DocumentVersion
	IsCurrent bool `json:"isCurrent"`
}

// FileMeta describes an uploaded blob handed to version creation.
type FileMeta struct {
	FilePath  string
	SizeBytes int64
	MimeType  string
}

// SizeMB renders the byte size as megabytes rounded to four decimals.
func (m FileMeta) SizeMB() float64 {
	mb := float64(m.SizeBytes) / BytesPerMB
	return float64(int64(mb*10000+0.5)) / 10000
}
