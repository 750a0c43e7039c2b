package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/akolanti/docrag/internal/domain/ragErrors"
)

// Tesseract runs the tesseract CLI. The binary is resolved on every call so installing it does not need a restart.
type Tesseract struct {
	binary string
	lang   string
}

func NewTesseract(binary string) *Tesseract {
	return &Tesseract{binary: binary, lang: "eng"}
}

func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	bin, err := exec.LookPath(t.binary)
	if err != nil {
		return "", ragErrors.Kind(ragErrors.ErrOCREngineUnavailable, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, imagePath, "stdout", "-l", t.lang)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
