package segment

import (
	"strings"
	"unicode/utf8"

	"github.com/papyrus-lab/papyrus/pkg/common"
)

// Strategy selects how a document is split into chunks.
type Strategy string

const (
	StrategyTruncate      Strategy = "truncate"
	StrategyHierarchical  Strategy = "hierarchical"
	StrategyParagraph     Strategy = "paragraph_based"
	StrategySlidingWindow Strategy = "sliding_window"
)

const (
	// DefaultChunkSize is the target chunk size in characters when the
	// caller does not provide one.
	DefaultChunkSize = 4000

	// DefaultWindowOverlap is the sliding-window overlap in characters.
	DefaultWindowOverlap = 200

	// minTextLength is the shortest input worth segmenting. Anything
	// shorter yields no chunks, which is a defined outcome rather than
	// an error.
	minTextLength = 10

	// maxWindowChunks caps sliding-window output per document as a
	// runaway-loop guard. Once reached, segmentation stops even if text
	// remains. This truncation is policy, not an error.
	maxWindowChunks = 20

	// minWindowChunkLength discards sliding-window chunks that collapse
	// below a useful size after boundary trimming.
	minWindowChunkLength = 100

	// sentenceLookback is how far splitLargeSection searches backward
	// from a window boundary for a sentence-terminating period.
	sentenceLookback = 100

	// whitespaceSlack is how far a sliding-window edge may move in either
	// direction to land on a whitespace boundary.
	whitespaceSlack = 50
)

// Config carries explicit segmentation parameters. Zero values fall back
// to the package defaults, so Config{} is usable as-is.
type Config struct {
	Strategy        Strategy
	TargetChunkSize int
	WindowOverlap   int
}

func (c Config) withDefaults() Config {
	if c.TargetChunkSize <= 0 {
		c.TargetChunkSize = DefaultChunkSize
	}
	if c.WindowOverlap <= 0 || c.WindowOverlap >= c.TargetChunkSize {
		c.WindowOverlap = DefaultWindowOverlap
	}
	return c
}

// Segment splits text into chunks using the configured strategy.
//
// Empty or too-short input returns an empty slice; that is the defined
// "no chunks" outcome, not a failure. Unknown strategy names fall back to
// hierarchical segmentation.
func Segment(text string, cfg Config) []common.Chunk {
	cfg = cfg.withDefaults()

	if len(strings.TrimSpace(text)) < minTextLength {
		return nil
	}

	switch cfg.Strategy {
	case StrategyTruncate:
		return segmentTruncate(text, cfg)
	case StrategyParagraph:
		return segmentParagraphs(text, cfg)
	case StrategySlidingWindow:
		return segmentSlidingWindow(text, cfg)
	case StrategyHierarchical:
		return segmentHierarchical(text, cfg)
	default:
		return segmentHierarchical(text, cfg)
	}
}

func segmentTruncate(text string, cfg Config) []common.Chunk {
	end := alignToRune(text, min(cfg.TargetChunkSize, len(text)))

	content := strings.TrimSpace(text[:end])
	if content == "" {
		return nil
	}

	return []common.Chunk{{
		Content:     content,
		StartPos:    0,
		EndPos:      end,
		ChunkNumber: 1,
		SectionType: "truncated",
		Strategy:    string(StrategyTruncate),
	}}
}

// adjustToWhitespace moves pos to the nearest whitespace character within
// slack characters in either direction. If none is found, pos is returned
// unchanged.
func adjustToWhitespace(text string, pos int, slack int) int {
	if pos <= 0 || pos >= len(text) {
		return pos
	}
	for offset := 0; offset <= slack; offset++ {
		if pos-offset > 0 && isSpace(text[pos-offset]) {
			return pos - offset
		}
		if pos+offset < len(text) && isSpace(text[pos+offset]) {
			return pos + offset
		}
	}
	return pos
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// alignToRune moves pos left to the nearest UTF-8 rune start so a cut never
// splits a multi-byte character.
func alignToRune(text string, pos int) int {
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}
