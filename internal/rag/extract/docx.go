package extract

import (
	"fmt"
	"strings"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/lu4p/cat"
)

const DocxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// extractDOCX flattens the whole document into one unit. The format carries no reliable page breaks.
// cat falls back to reading unknown bytes as plain text, so the container is checked first.
func extractDOCX(path string) ([]commonModels.ExtractedUnit, error) {
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, fmt.Errorf("failed to read docx: %w", err))
	}
	if !detected.Is(DocxMIME) {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, fmt.Errorf("not a docx document, got %s", detected.String()))
	}

	text, err := cat.File(path)
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, fmt.Errorf("failed to extract docx: %w", err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, errNoText)
	}
	return []commonModels.ExtractedUnit{{
		Content:    text,
		SourceType: commonModels.SourceText,
	}}, nil
}
