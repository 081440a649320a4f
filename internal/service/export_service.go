package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	"github.com/noah-isme/ems-docs-api/pkg/export"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders document history into downloadable files.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// RenderHistory renders the log entries of a document in the requested format.
func (s *ExportService) RenderHistory(doc *models.Document, logs []models.DocumentLog, format dto.ExportFormat) (*dto.ExportFile, error) {
	dataset := historyDataset(logs)
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch dto.ExportFormat(strings.ToLower(string(format))) {
	case dto.ExportFormatCSV, "":
		format = dto.ExportFormatCSV
		contentType = "text/csv"
		payload, err = s.csv.Render(dataset)
	case dto.ExportFormatPDF:
		format = dto.ExportFormatPDF
		contentType = "application/pdf"
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("History of %s", doc.Title))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render history export")
	}
	s.logger.Debug("history export rendered", zap.String("document_id", doc.ID), zap.Int("entries", len(logs)), zap.String("format", string(format)))
	return &dto.ExportFile{
		Filename:    historyFilename(doc, format, s.now()),
		ContentType: contentType,
		Content:     payload,
	}, nil
}

func historyDataset(logs []models.DocumentLog) export.Dataset {
	rows := make([]map[string]string, 0, len(logs))
	for _, entry := range logs {
		rows = append(rows, map[string]string{
			"Timestamp": entry.CreatedAt.UTC().Format(time.RFC3339),
			"User":      entry.UserID,
			"Action":    entry.Action,
			"Details":   entry.Details,
		})
	}
	return export.Dataset{
		Headers: []string{"Timestamp", "User", "Action", "Details"},
		Rows:    rows,
		Weights: []float64{2, 2, 2, 5},
	}
}

func historyFilename(doc *models.Document, format dto.ExportFormat, now time.Time) string {
	return fmt.Sprintf("%s_history_%s.%s", sanitizeFilename(doc.Title), now.UTC().Format("20060102_150405"), format)
}

func sanitizeFilename(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "document"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "\"", "", "..", ".", "__", "_")
	result := replacer.Replace(strings.TrimSpace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
