package segment

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const paperText = "Abstract\nThis paper studies X.\n\nIntroduction\nX is important because Y.\n\nConclusion\nWe showed Z."

func TestSegmentHierarchicalSections(t *testing.T) {
	t.Parallel()

	chunks := Segment(paperText, Config{Strategy: StrategyHierarchical})
	if len(chunks) != 3 {
		t.Fatalf("Segment() returned %d chunks, want 3", len(chunks))
	}

	wantSections := []string{"abstract", "introduction", "conclusion"}
	for i, chunk := range chunks {
		if chunk.SectionType != wantSections[i] {
			t.Errorf("chunk %d section = %q, want %q", i, chunk.SectionType, wantSections[i])
		}
		if chunk.ChunkNumber != i+1 {
			t.Errorf("chunk %d number = %d, want %d", i, chunk.ChunkNumber, i+1)
		}
	}

	if got := chunks[2].Content; got != "Conclusion\nWe showed Z." {
		t.Errorf("conclusion content = %q", got)
	}
}

func TestSegmentHierarchicalPreamble(t *testing.T) {
	t.Parallel()

	text := "Some title and author list.\n\nIntroduction\nThe body of the introduction."
	chunks := Segment(text, Config{Strategy: StrategyHierarchical})
	if len(chunks) != 2 {
		t.Fatalf("Segment() returned %d chunks, want 2", len(chunks))
	}
	if chunks[0].SectionType != "unknown" {
		t.Errorf("preamble section = %q, want unknown", chunks[0].SectionType)
	}
	if chunks[1].SectionType != "introduction" {
		t.Errorf("second section = %q, want introduction", chunks[1].SectionType)
	}
}

func TestSegmentHierarchicalNoHeadings(t *testing.T) {
	t.Parallel()

	text := "Plain running text without any recognizable section markers in it."
	chunks := Segment(text, Config{Strategy: StrategyHierarchical})
	if len(chunks) != 1 {
		t.Fatalf("Segment() returned %d chunks, want 1", len(chunks))
	}
	if chunks[0].SectionType != "unknown" {
		t.Errorf("section = %q, want unknown", chunks[0].SectionType)
	}
}

func TestHeadingLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
	}{
		{"Abstract", "abstract"},
		{"ABSTRACT", "abstract"},
		{"Methods:", "methods"},
		{"Methodology.", "methods"},
		{"Conclusions", "conclusion"},
		{"  Results  ", "results"},
		{"Abstract of the paper", ""},
		{"", ""},
		{"References", ""},
	}

	for _, tc := range tests {
		if got := headingLabel(tc.line); got != tc.want {
			t.Errorf("headingLabel(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestSplitLargeSectionCutsAtSentence(t *testing.T) {
	t.Parallel()

	sentence := "This is a sentence that ends with a period. "
	body := strings.Repeat(sentence, 20)
	text := "Methods\n" + body

	chunks := Segment(text, Config{Strategy: StrategyHierarchical, TargetChunkSize: 300})
	if len(chunks) < 2 {
		t.Fatalf("Segment() returned %d chunks, want a split section", len(chunks))
	}

	for i, chunk := range chunks {
		wantSection := "methods_part_" + string(rune('1'+i))
		if chunk.SectionType != wantSection {
			t.Errorf("chunk %d section = %q, want %q", i, chunk.SectionType, wantSection)
		}
		if i < len(chunks)-1 && !strings.HasSuffix(chunk.Content, ".") {
			t.Errorf("chunk %d does not end at a sentence: %q", i, chunk.Content[len(chunk.Content)-10:])
		}
	}
}

func TestSegmentTruncate(t *testing.T) {
	t.Parallel()

	text := "The quick brown fox jumps over the lazy dog and keeps on running."
	chunks := Segment(text, Config{Strategy: StrategyTruncate, TargetChunkSize: 19})
	if len(chunks) != 1 {
		t.Fatalf("Segment() returned %d chunks, want 1", len(chunks))
	}

	chunk := chunks[0]
	if chunk.Content != "The quick brown fox" {
		t.Errorf("content = %q", chunk.Content)
	}
	if chunk.ChunkNumber != 1 || chunk.SectionType != "truncated" {
		t.Errorf("chunk = %+v", chunk)
	}
	if chunk.StartPos != 0 || chunk.EndPos != 19 {
		t.Errorf("positions = [%d, %d), want [0, 19)", chunk.StartPos, chunk.EndPos)
	}
}

func TestSegmentParagraphs(t *testing.T) {
	t.Parallel()

	p1 := "First paragraph about the experimental setup."
	p2 := "Second paragraph describing the dataset used."
	p3 := "Third paragraph summarizing the main findings."
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	chunks := Segment(text, Config{Strategy: StrategyParagraph, TargetChunkSize: 100})
	if len(chunks) != 2 {
		t.Fatalf("Segment() returned %d chunks, want 2", len(chunks))
	}

	if want := p1 + "\n\n" + p2; chunks[0].Content != want {
		t.Errorf("chunk 1 content = %q, want %q", chunks[0].Content, want)
	}
	if chunks[1].Content != p3 {
		t.Errorf("chunk 2 content = %q, want %q", chunks[1].Content, p3)
	}
	if chunks[0].StartPos != 0 {
		t.Errorf("chunk 1 start = %d, want 0", chunks[0].StartPos)
	}
	if want := len(p1) + 2 + len(p2) + 2; chunks[1].StartPos != want {
		t.Errorf("chunk 2 start = %d, want %d", chunks[1].StartPos, want)
	}
}

func TestSegmentParagraphsOversizedEmittedWhole(t *testing.T) {
	t.Parallel()

	paragraph := strings.Repeat("An oversized paragraph keeps going. ", 10)
	chunks := Segment(strings.TrimSpace(paragraph), Config{Strategy: StrategyParagraph, TargetChunkSize: 50})
	if len(chunks) != 1 {
		t.Fatalf("Segment() returned %d chunks, want 1", len(chunks))
	}
	if len(chunks[0].Content) <= 50 {
		t.Errorf("oversized paragraph was split: %d chars", len(chunks[0].Content))
	}
}

func TestSegmentSlidingWindowCap(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word after word in a long stream of text ", 300)
	chunks := Segment(text, Config{Strategy: StrategySlidingWindow, TargetChunkSize: 300})

	if len(chunks) != maxWindowChunks {
		t.Fatalf("Segment() returned %d chunks, want cap of %d", len(chunks), maxWindowChunks)
	}
	for i, chunk := range chunks {
		if len(chunk.Content) < minWindowChunkLength {
			t.Errorf("chunk %d length %d below minimum %d", i, len(chunk.Content), minWindowChunkLength)
		}
		if chunk.ChunkNumber != i+1 {
			t.Errorf("chunk %d number = %d, want %d", i, chunk.ChunkNumber, i+1)
		}
	}
}

func TestSegmentSlidingWindowWordBoundaries(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("boundary alignment check with spaced words ", 50)
	chunks := Segment(text, Config{Strategy: StrategySlidingWindow, TargetChunkSize: 400, WindowOverlap: 100})

	for i, chunk := range chunks {
		if strings.HasPrefix(chunk.Content, " ") || strings.HasSuffix(chunk.Content, " ") {
			t.Errorf("chunk %d not trimmed: %q", i, chunk.Content)
		}
		start, end := chunk.StartPos, chunk.EndPos
		if start > 0 && !isSpace(text[start]) && !isSpace(text[start-1]) {
			t.Errorf("chunk %d starts mid-word at %d", i, start)
		}
		if end < len(text) && !isSpace(text[end]) && !isSpace(text[end-1]) {
			t.Errorf("chunk %d ends mid-word at %d", i, end)
		}
	}
}

func TestSegmentShortText(t *testing.T) {
	t.Parallel()

	for _, strategy := range []Strategy{StrategyTruncate, StrategyHierarchical, StrategyParagraph, StrategySlidingWindow} {
		if chunks := Segment("   tiny  ", Config{Strategy: strategy}); len(chunks) != 0 {
			t.Errorf("Segment(%q) = %d chunks, want 0", strategy, len(chunks))
		}
	}
}

func TestSegmentUnknownStrategyFallsBackToHierarchical(t *testing.T) {
	t.Parallel()

	chunks := Segment(paperText, Config{Strategy: "semantic"})
	if len(chunks) != 3 {
		t.Fatalf("Segment() returned %d chunks, want 3", len(chunks))
	}
	if chunks[0].Strategy != string(StrategyHierarchical) {
		t.Errorf("strategy = %q, want %q", chunks[0].Strategy, StrategyHierarchical)
	}
}

func TestChunkNumbersStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	text := "Introduction\n" + strings.Repeat("A sentence about the topic at hand. ", 100) +
		"\n\nMethods\n" + strings.Repeat("Another methodological sentence here. ", 100)

	for _, strategy := range []Strategy{StrategyHierarchical, StrategyParagraph, StrategySlidingWindow} {
		chunks := Segment(text, Config{Strategy: strategy, TargetChunkSize: 500})
		if len(chunks) == 0 {
			t.Fatalf("Segment(%q) returned no chunks", strategy)
		}
		for i, chunk := range chunks {
			if chunk.ChunkNumber != i+1 {
				t.Errorf("%s: chunk %d number = %d, want %d", strategy, i, chunk.ChunkNumber, i+1)
			}
		}
	}
}

func TestSegmentKeepsRuneBoundaries(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		text string
		cfg  Config
	}{
		{
			name: "truncate on multi-byte text",
			text: strings.Repeat("ü", 40),
			cfg:  Config{Strategy: StrategyTruncate, TargetChunkSize: 25},
		},
		{
			name: "hierarchical split without sentence ends",
			text: "Methods\n" + strings.Repeat("αβ", 400),
			cfg:  Config{Strategy: StrategyHierarchical, TargetChunkSize: 301},
		},
		{
			name: "sliding window without whitespace",
			text: strings.Repeat("€", 200),
			cfg:  Config{Strategy: StrategySlidingWindow, TargetChunkSize: 256, WindowOverlap: 10},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			chunks := Segment(tc.text, tc.cfg)
			if len(chunks) == 0 {
				t.Fatalf("Segment() returned no chunks")
			}
			for _, chunk := range chunks {
				if !utf8.ValidString(chunk.Content) {
					t.Errorf("chunk %d content is not valid UTF-8", chunk.ChunkNumber)
				}
			}
		})
	}
}

func TestSegmentTruncateAlignsCutToRune(t *testing.T) {
	t.Parallel()

	// 25 lands mid-rune on two-byte characters, so the cut moves back to 24.
	chunks := Segment(strings.Repeat("ü", 40), Config{Strategy: StrategyTruncate, TargetChunkSize: 25})
	if len(chunks) != 1 {
		t.Fatalf("Segment() returned %d chunks, want 1", len(chunks))
	}
	if chunks[0].EndPos != 24 {
		t.Errorf("EndPos = %d, want 24", chunks[0].EndPos)
	}
	if got := len(chunks[0].Content); got != 24 {
		t.Errorf("content length = %d, want 24", got)
	}
}
