package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
)

// extractCSV emits one unit per data row, each field rendered as "header: value".
func extractCSV(path string) ([]commonModels.ExtractedUnit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, err)
	}
	text, _, err := DecodeText(raw)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ragErrors.Kind(ragErrors.ErrFormat, errors.New("csv file is empty"))
		}
		return nil, ragErrors.Kind(ragErrors.ErrFormat, fmt.Errorf("reading csv header: %w", err))
	}
	for i, h := range header {
		if h = strings.TrimSpace(h); h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		header[i] = h
	}

	var units []commonModels.ExtractedUnit
	for rowNum := 1; ; rowNum++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ragErrors.Kind(ragErrors.ErrFormat, fmt.Errorf("reading csv row %d: %w", rowNum, err))
		}
		content := renderRow(header, record)
		if content == "" {
			continue
		}
		units = append(units, commonModels.ExtractedUnit{
			Content:    content,
			SourceType: commonModels.SourceText,
			RowNum:     rowNum,
		})
	}

	if len(units) == 0 {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, errors.New("csv file has no data rows"))
	}
	return units, nil
}

func renderRow(header []string, record []string) string {
	var b strings.Builder
	for i, value := range record {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		name := fmt.Sprintf("column_%d", i+1)
		if i < len(header) {
			name = header[i]
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
	}
	return b.String()
}
