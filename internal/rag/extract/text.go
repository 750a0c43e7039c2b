package extract

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type textDecoder struct {
	name   string
	decode func([]byte) (string, bool)
}

// tried in order, first clean decode wins
var textDecoders = []textDecoder{
	{name: "utf-8", decode: decodeUTF8},
	{name: "windows-1252", decode: charmapDecoder(charmap.Windows1252)},
	{name: "iso-8859-1", decode: charmapDecoder(charmap.ISO8859_1)},
}

func decodeUTF8(raw []byte) (string, bool) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

func charmapDecoder(cm *charmap.Charmap) func([]byte) (string, bool) {
	return func(raw []byte) (string, bool) {
		out, err := cm.NewDecoder().Bytes(raw)
		if err != nil {
			return "", false
		}
		return string(out), true
	}
}

// looksLikeText rejects decodings that produced replacement runes or control characters, which means binary input.
func looksLikeText(s string) bool {
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r' || r == '\f':
		case r == utf8.RuneError:
			return false
		case unicode.IsControl(r):
			return false
		}
	}
	return true
}

// DecodeText returns the text and the name of the encoding that decoded it.
func DecodeText(raw []byte) (string, string, error) {
	for _, d := range textDecoders {
		text, ok := d.decode(raw)
		if ok && looksLikeText(text) {
			return text, d.name, nil
		}
	}
	tried := make([]string, len(textDecoders))
	for i, d := range textDecoders {
		tried[i] = d.name
	}
	return "", "", ragErrors.Kind(ragErrors.ErrEncoding, fmt.Errorf("tried %s", strings.Join(tried, ", ")))
}

func extractText(path string) ([]commonModels.ExtractedUnit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, err)
	}
	text, _, err := DecodeText(raw)
	if err != nil {
		return nil, err
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
