package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/dslipak/pdf"
)

var errNoText = errors.New("document contains no extractable text")

func (e *Extractor) extractPDF(ctx context.Context, path string) (units []commonModels.ExtractedUnit, err error) {
	log := e.logger.WithTrace(ctx).With("path", path)

	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			log.Error("pdf parser panicked", "panic", r)
			units, err = nil, ragErrors.Kind(ragErrors.ErrFormat, fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	f, err := pdf.Open(path)
	if err != nil {
		log.Error("failed opening of pdf file", "error", err)
		return nil, ragErrors.Kind(ragErrors.ErrFormat, fmt.Errorf("failed to open pdf: %w", err))
	}

	numPages := f.NumPage()
	log.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			log.Debug("extractPDF", "null page", i)
			continue
		}

		content, err := protectExtract(ctx, page, e.pageTimeout)
		if err != nil {
			// one bad page should not sink the document
			log.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		units = append(units, commonModels.ExtractedUnit{
			Content:    content,
			SourceType: commonModels.SourceText,
			PageNum:    i,
		})
	}

	if len(units) == 0 {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, errNoText)
	}
	return units, nil
}

// protectExtract bounds a single page's text extraction.
func protectExtract(ctx context.Context, page pdf.Page, timeout time.Duration) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("page parser panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-timer.C:
		return "", errors.New("page extraction timed out")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
