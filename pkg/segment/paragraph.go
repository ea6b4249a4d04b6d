package segment

import (
	"strings"

	"github.com/papyrus-lab/papyrus/pkg/common"
)

// splitParagraphs splits text on blank-line boundaries and drops empty
// fragments.
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// segmentParagraphs accumulates consecutive paragraphs into a buffer and
// emits a chunk whenever appending the next paragraph would push the buffer
// past the target size. A single paragraph larger than the target is still
// emitted whole.
//
// Positions are located via the paragraph's first occurrence in the source
// text. Documents with repeated paragraphs may record an earlier offset than
// the true one; this is a known approximation.
func segmentParagraphs(text string, cfg Config) []common.Chunk {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []common.Chunk
	number := 1

	var buffer []string
	bufferLen := 0

	emit := func() {
		if len(buffer) == 0 {
			return
		}

		content := strings.Join(buffer, "\n\n")
		start := strings.Index(text, buffer[0])
		if start < 0 {
			start = 0
		}
		end := start + len(content)
		if last := strings.Index(text, buffer[len(buffer)-1]); last >= start {
			end = last + len(buffer[len(buffer)-1])
		}
		if end > len(text) {
			end = len(text)
		}

		chunks = append(chunks, common.Chunk{
			Content:     content,
			StartPos:    start,
			EndPos:      end,
			ChunkNumber: number,
			SectionType: "unknown",
			Strategy:    string(StrategyParagraph),
		})
		number++
		buffer = nil
		bufferLen = 0
	}

	for _, paragraph := range paragraphs {
		// +2 accounts for the blank-line separator restored on join.
		addition := len(paragraph)
		if bufferLen > 0 {
			addition += 2
		}
		if bufferLen > 0 && bufferLen+addition > cfg.TargetChunkSize {
			emit()
			addition = len(paragraph)
		}
		buffer = append(buffer, paragraph)
		bufferLen += addition
	}
	emit()

	return chunks
}
