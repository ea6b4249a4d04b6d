package segment

import (
	"strconv"
	"strings"

	"github.com/papyrus-lab/papyrus/pkg/common"
)

// sectionHeadings maps recognized section-heading words to their canonical
// section label. Matching is case-insensitive on the whole line, with an
// optional trailing colon or period.
var sectionHeadings = map[string]string{
	"abstract":     "abstract",
	"introduction": "introduction",
	"methods":      "methods",
	"methodology":  "methods",
	"results":      "results",
	"discussion":   "discussion",
	"conclusion":   "conclusion",
	"conclusions":  "conclusion",
}

type sectionSpan struct {
	start   int
	end     int
	section string
}

// headingLabel reports the canonical section label if line is a heading
// marker, or "" otherwise.
func headingLabel(line string) string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimRight(trimmed, ":.")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return ""
	}
	return sectionHeadings[strings.ToLower(trimmed)]
}

// findSections scans the text for heading markers and returns the resulting
// section spans in document order. Text preceding the first heading becomes
// an "unknown" section.
func findSections(text string) []sectionSpan {
	type heading struct {
		offset  int
		section string
	}

	var headings []heading
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if label := headingLabel(line); label != "" {
			headings = append(headings, heading{offset: offset, section: label})
		}
		offset += len(line)
	}

	var spans []sectionSpan
	if len(headings) == 0 {
		return []sectionSpan{{start: 0, end: len(text), section: "unknown"}}
	}

	if first := headings[0].offset; first > 0 && strings.TrimSpace(text[:first]) != "" {
		spans = append(spans, sectionSpan{start: 0, end: first, section: "unknown"})
	}

	for i, h := range headings {
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1].offset
		}
		spans = append(spans, sectionSpan{start: h.offset, end: end, section: h.section})
	}

	return spans
}

func segmentHierarchical(text string, cfg Config) []common.Chunk {
	var chunks []common.Chunk
	number := 1

	emit := func(start, end int, section string) {
		content := strings.TrimSpace(text[start:end])
		if content == "" {
			return
		}
		chunks = append(chunks, common.Chunk{
			Content:     content,
			StartPos:    start,
			EndPos:      end,
			ChunkNumber: number,
			SectionType: section,
			Strategy:    string(StrategyHierarchical),
		})
		number++
	}

	for _, span := range findSections(text) {
		if span.end-span.start <= cfg.TargetChunkSize {
			emit(span.start, span.end, span.section)
			continue
		}
		splitLargeSection(text, span, cfg.TargetChunkSize, emit)
	}

	return chunks
}

// splitLargeSection re-splits a section that exceeds the target chunk size.
// It walks forward in target-size windows and, at each window boundary,
// searches backward up to sentenceLookback characters for a period so the
// cut never lands mid-sentence when a sentence end is available.
func splitLargeSection(text string, span sectionSpan, targetSize int, emit func(start, end int, section string)) {
	pos := span.start
	part := 1

	for pos < span.end {
		end := min(pos+targetSize, span.end)

		if end < span.end {
			end = alignToRune(text, end)
			lookStart := max(end-sentenceLookback, pos+1)
			for i := end - 1; i >= lookStart; i-- {
				if text[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		emit(pos, end, span.section+"_part_"+strconv.Itoa(part))
		part++
		pos = end
	}
}
