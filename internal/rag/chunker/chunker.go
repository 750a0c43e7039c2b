package chunker

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/docrag/internal/adapter/utils"
	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
)

// DefaultSeparators ordered from "best" to "worst" for semantic meaning
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

// Splitter is a recursive character splitter. Lengths are counted in runes.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

type Option func(*Splitter)

func WithSize(size int) Option {
	return func(s *Splitter) { s.size = size }
}

func WithOverlap(overlap int) Option {
	return func(s *Splitter) { s.overlap = overlap }
}

func WithSeparators(separators ...string) Option {
	return func(s *Splitter) { s.separators = separators }
}

func New(opts ...Option) *Splitter {
	s := &Splitter{
		size:       config.DefaultChunkSize,
		overlap:    config.DefaultChunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.size <= 0 {
		s.size = config.DefaultChunkSize
	}
	if s.overlap < 0 {
		s.overlap = 0
	}
	if s.overlap >= s.size {
		s.overlap = s.size / 4
	}
	if len(s.separators) == 0 {
		s.separators = DefaultSeparators
	}
	return s
}

func (s *Splitter) Size() int    { return s.size }
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns trimmed, non-empty windows of text in order.
func (s *Splitter) Split(text string) []string {
	var chunks []string
	for _, c := range s.split(text, s.separators) {
		if c = strings.TrimSpace(c); c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var finer []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var out, fitting []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) <= s.size {
			fitting = append(fitting, piece)
			continue
		}
		if len(fitting) > 0 {
			out = append(out, s.merge(fitting)...)
			fitting = nil
		}
		if len(finer) == 0 {
			// nothing left to split on, the piece is atomic
			out = append(out, piece)
			continue
		}
		out = append(out, s.split(piece, finer)...)
	}
	if len(fitting) > 0 {
		out = append(out, s.merge(fitting)...)
	}
	return out
}

// merge packs pieces into windows of at most size runes, carrying whole trailing pieces worth at most overlap runes forward.
func (s *Splitter) merge(pieces []string) []string {
	var windows []string
	var window []string
	total := 0

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.size && len(window) > 0 {
			windows = append(windows, strings.Join(window, ""))
			for len(window) > 0 && (total > s.overlap || total+n > s.size) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}
	if len(window) > 0 {
		windows = append(windows, strings.Join(window, ""))
	}
	return windows
}

// splitKeepingSeparator leaves each separator attached to the piece before it so joining pieces restores the text.
func splitKeepingSeparator(text string, separator string) []string {
	if separator == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	pieces := strings.SplitAfter(text, separator)
	if last := len(pieces) - 1; last >= 0 && pieces[last] == "" {
		pieces = pieces[:last]
	}
	return pieces
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// ChunkDocument splits every unit on its own so provenance is kept, then numbers the chunks across the whole document.
func (s *Splitter) ChunkDocument(documentId string, units []commonModels.ExtractedUnit) []commonModels.DocChunk {
	now := time.Now().UTC()
	var chunks []commonModels.DocChunk
	for _, unit := range units {
		for _, text := range s.Split(unit.Content) {
			chunks = append(chunks, commonModels.DocChunk{
				DocumentId:     documentId,
				Chunk:          text,
				Filename:       unit.Filename,
				Extension:      unit.Extension,
				SourceType:     unit.SourceType,
				PageNum:        unit.PageNum,
				RowNum:         unit.RowNum,
				TableName:      unit.TableName,
				RowCount:       unit.RowCount,
				Recovery:       unit.Recovery,
				VisionAnalyzed: unit.VisionAnalyzed,
				IngestedAt:     now,
			})
		}
	}

	for i := range chunks {
		chunks[i].Index = i
		chunks[i].TotalChunks = len(chunks)
		chunks[i].ChunkId = utils.GetChunkPointId(documentId, i)
	}
	return chunks
}
