package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/pkg/logger_i"
)

// OCREngine recognizes text in an image file. A missing engine must be reported as ragErrors.ErrOCREngineUnavailable.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// ImageDescriber is the vision variant of the generation provider.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error)
}

type Extractor struct {
	ocr           OCREngine
	describer     ImageDescriber
	rowCap        int
	pageTimeout   time.Duration
	visionMaxDim  int
	visionQuality int
	logger        *logger_i.Logger
}

type Option func(*Extractor)

func WithOCR(engine OCREngine) Option {
	return func(e *Extractor) { e.ocr = engine }
}

func WithImageDescriber(d ImageDescriber) Option {
	return func(e *Extractor) { e.describer = d }
}

func WithRowCap(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.rowCap = n
		}
	}
}

func WithPageTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.pageTimeout = d
		}
	}
}

func WithVisionMaxDimension(px int) Option {
	return func(e *Extractor) {
		if px > 0 {
			e.visionMaxDim = px
		}
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		ocr:           NewTesseract(config.OCRBinary),
		rowCap:        config.SQLiteRowCap,
		pageTimeout:   config.PDFPageTimeout,
		visionMaxDim:  config.VisionMaxDimension,
		visionQuality: config.VisionJPEGQuality,
		logger:        logger_i.NewLogger("Extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract dispatches on the declared extension of filename and reads the file at path.
// Every returned unit carries the filename and lower-cased extension.
func (e *Extractor) Extract(ctx context.Context, path string, filename string) ([]commonModels.ExtractedUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	docType := commonModels.GetDocType(filename)
	e.logger.WithTrace(ctx).Debug("extracting", "file", filename, "type", docType)

	var units []commonModels.ExtractedUnit
	var err error

	switch docType {
	case commonModels.PDF:
		units, err = e.extractPDF(ctx, path)
	case commonModels.DOCX:
		units, err = extractDOCX(path)
	case commonModels.TXT:
		units, err = extractText(path)
	case commonModels.CSV:
		units, err = extractCSV(path)
	case commonModels.SQLITE:
		units, err = e.extractSQLite(ctx, path)
	case commonModels.PNG, commonModels.JPEG:
		var unit commonModels.ExtractedUnit
		unit, err = e.recoverImageText(ctx, path, filename)
		units = []commonModels.ExtractedUnit{unit}
	default:
		return nil, ragErrors.Kind(ragErrors.ErrFormat, fmt.Errorf("unsupported extension %q", ext))
	}
	if err != nil {
		return nil, err
	}

	for i := range units {
		units[i].Filename = filename
		units[i].Extension = ext
	}
	return units, nil
}
