package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
)

type RecoveryState string

const (
	StateOCRAttempted   RecoveryState = "OCR_ATTEMPTED"
	StateVisionFallback RecoveryState = "VISION_FALLBACK"
)

const VisionPrompt = `Describe this image so it can be found by a text search. Cover, in this order:
1. Image type (photo, chart, diagram, screenshot, scanned document, drawing, ...).
2. Main subjects and their layout.
3. Any text visible in the image, transcribed verbatim.
4. Data, numbers, trends or concepts the image depicts.
5. Any other details someone might search for.
Answer in plain text without preamble.`

var errNoDescriber = errors.New("no vision provider configured")

func placeholderText(filename string) string {
	return fmt.Sprintf("Image file: %s (no text could be recovered from this image)", filename)
}

// recoverImageText runs OCR and falls back to a vision description only when OCR ran and found nothing.
// A failing vision provider degrades to a placeholder, a missing OCR engine does not degrade at all.
func (e *Extractor) recoverImageText(ctx context.Context, path string, filename string) (commonModels.ExtractedUnit, error) {
	unit := commonModels.ExtractedUnit{SourceType: commonModels.SourceImage}
	log := e.logger.WithTrace(ctx).With("file", filename)

	log.Debug("image recovery", "state", StateOCRAttempted)
	text, err := e.ocr.Recognize(ctx, path)
	if err != nil {
		if errors.Is(err, ragErrors.ErrOCREngineUnavailable) || ctx.Err() != nil {
			return unit, err
		}
		return unit, ragErrors.Kind(ragErrors.ErrFormat, err)
	}
	if text = strings.TrimSpace(text); text != "" {
		unit.Content = text
		unit.Recovery = commonModels.RecoveryOCR
		return unit, nil
	}

	log.Info("ocr found no text", "state", StateVisionFallback)
	raw, err := os.ReadFile(path)
	if err != nil {
		return unit, ragErrors.Kind(ragErrors.ErrFormat, err)
	}
	prepared, err := PrepareForVision(raw, e.visionMaxDim, e.visionQuality)
	if err != nil {
		return unit, ragErrors.Kind(ragErrors.ErrFormat, err)
	}

	description, err := e.describe(ctx, prepared)
	if err != nil {
		if ctx.Err() != nil {
			return unit, ctx.Err()
		}
		log.Warn("vision description failed, using placeholder", "error", err)
		unit.Content = placeholderText(filename)
		unit.Recovery = commonModels.RecoveryPlaceholder
		return unit, nil
	}

	unit.Content = description
	unit.Recovery = commonModels.RecoveryVision
	unit.VisionAnalyzed = true
	return unit, nil
}

func (e *Extractor) describe(ctx context.Context, jpegBytes []byte) (string, error) {
	if e.describer == nil {
		return "", errNoDescriber
	}
	description, err := e.describer.DescribeImage(ctx, jpegBytes, "image/jpeg", VisionPrompt)
	if err != nil {
		return "", err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return "", errors.New("vision provider returned an empty description")
	}
	return description, nil
}
