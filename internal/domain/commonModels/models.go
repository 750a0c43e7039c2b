package commonModels

import (
	"path/filepath"
	"strings"
	"time"
)

type DocType string

const (
	PDF    DocType = "PDF"
	DOCX   DocType = "DOCX"
	TXT    DocType = "TXT"
	CSV    DocType = "CSV"
	PNG    DocType = "PNG"
	JPEG   DocType = "JPEG"
	SQLITE DocType = "SQLITE"
	ERR    DocType = "ERROR"
)

// GetDocType maps a filename or bare extension to its DocType. Unknown extensions return ERR.
func GetDocType(name string) DocType {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" && strings.HasPrefix(name, ".") {
		ext = strings.ToLower(name)
	}
	switch ext {
	case ".pdf":
		return PDF
	case ".docx":
		return DOCX
	case ".txt":
		return TXT
	case ".csv":
		return CSV
	case ".png":
		return PNG
	case ".jpg", ".jpeg":
		return JPEG
	case ".db", ".sqlite", ".sqlite3":
		return SQLITE
	default:
		return ERR
	}
}

func (d DocType) IsImage() bool {
	return d == PNG || d == JPEG
}

// SupportedExtensions is the upload allow-list.
var SupportedExtensions = []string{".pdf", ".docx", ".txt", ".csv", ".png", ".jpg", ".jpeg", ".db", ".sqlite", ".sqlite3"}

type DocumentStatus string

const (
	DocumentPending DocumentStatus = "PENDING"
	DocumentReady   DocumentStatus = "READY"
	DocumentFailed  DocumentStatus = "FAILED"
)

type Document struct {
	Id                  string         `json:"document_id"`
	Name                string         `json:"filename"`
	Extension           string         `json:"extension"`
	SizeBytes           int64          `json:"size_bytes"`
	Path                string         `json:"-"`
	ContentType         DocType        `json:"content_type"`
	Status              DocumentStatus `json:"status"`
	ChunkCount          int            `json:"chunk_count"`
	LastError           string         `json:"last_error,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	LastIngestTimestamp time.Time      `json:"ingested_at,omitempty"`
}

type SourceType string

const (
	SourceText     SourceType = "text"
	SourceImage    SourceType = "image"
	SourceDatabase SourceType = "database"
)

type RecoveryMethod string

const (
	RecoveryNone        RecoveryMethod = ""
	RecoveryOCR         RecoveryMethod = "ocr"
	RecoveryVision      RecoveryMethod = "vision"
	RecoveryPlaceholder RecoveryMethod = "placeholder"
)

// ExtractedUnit is one page, table, row or image pulled out of a document. Zero PageNum/RowNum means no provenance.
type ExtractedUnit struct {
	Content        string         `json:"content"`
	SourceType     SourceType     `json:"source_type"`
	PageNum        int            `json:"page_num,omitempty"`
	RowNum         int            `json:"row_num,omitempty"`
	TableName      string         `json:"table_name,omitempty"`
	RowCount       int            `json:"row_count,omitempty"`
	Recovery       RecoveryMethod `json:"recovery_method,omitempty"`
	VisionAnalyzed bool           `json:"vision_analyzed,omitempty"`
	Filename       string         `json:"filename"`
	Extension      string         `json:"extension"`
}

type DocChunk struct {
	ChunkId        string         `json:"chunk_id"`
	DocumentId     string         `json:"document_id"`
	Chunk          string         `json:"content"`
	Index          int            `json:"chunk_index"`
	TotalChunks    int            `json:"total_chunks"`
	Filename       string         `json:"filename"`
	Extension      string         `json:"extension"`
	SourceType     SourceType     `json:"source_type"`
	PageNum        int            `json:"page_num,omitempty"`
	RowNum         int            `json:"row_num,omitempty"`
	TableName      string         `json:"table_name,omitempty"`
	RowCount       int            `json:"row_count,omitempty"`
	Recovery       RecoveryMethod `json:"recovery_method,omitempty"`
	VisionAnalyzed bool           `json:"vision_analyzed,omitempty"`
	IngestedAt     time.Time      `json:"ingested_at"`
}
