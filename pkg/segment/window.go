package segment

import (
	"strings"

	"github.com/papyrus-lab/papyrus/pkg/common"
)

// segmentSlidingWindow emits fixed-size windows advanced by
// targetChunkSize-overlap characters. Window edges are nudged to the nearest
// whitespace boundary so words are never split; windows that shrink below
// minWindowChunkLength after trimming are discarded. Emission stops at
// maxWindowChunks regardless of remaining text.
func segmentSlidingWindow(text string, cfg Config) []common.Chunk {
	step := cfg.TargetChunkSize - cfg.WindowOverlap
	if step <= 0 {
		step = cfg.TargetChunkSize
	}

	var chunks []common.Chunk
	number := 1

	for pos := 0; pos < len(text); pos += step {
		if len(chunks) >= maxWindowChunks {
			break
		}

		start := alignToRune(text, adjustToWhitespace(text, pos, whitespaceSlack))
		end := alignToRune(text, adjustToWhitespace(text, min(pos+cfg.TargetChunkSize, len(text)), whitespaceSlack))
		if end <= start {
			continue
		}

		content := strings.TrimSpace(text[start:end])
		if len(content) < minWindowChunkLength {
			continue
		}

		chunks = append(chunks, common.Chunk{
			Content:     content,
			StartPos:    start,
			EndPos:      end,
			ChunkNumber: number,
			SectionType: "window",
			Strategy:    string(StrategySlidingWindow),
		})
		number++

		if end >= len(text) {
			break
		}
	}

	return chunks
}
