package coverage

import (
	"math"
	"strings"

	"github.com/papyrus-lab/papyrus/pkg/common"
	"github.com/papyrus-lab/papyrus/pkg/segment"
)

const (
	// CoverageStandard is the minimum coverage ratio for a document to be
	// considered well represented by its stored chunks.
	CoverageStandard = 0.85

	// avgCharsPerWord converts the segmenter's character-based chunk size
	// into a word budget for estimation. English prose averages about six
	// characters per word including the trailing space.
	avgCharsPerWord = 6

	// The estimator steers chunk sizing toward this chunk-count range.
	// Fewer chunks make retrieval too coarse, more make it too noisy.
	minRecommendedChunks = 10
	maxRecommendedChunks = 80

	minChunkSize = 500
	maxChunkSize = 16000
)

// Estimate predicts how many chunks segmentation will produce for a text
// under a given target chunk size.
type Estimate struct {
	TotalWords      int `json:"total_words"`
	EstimatedChunks int `json:"estimated_chunks"`
}

// WordCount returns the number of whitespace-delimited words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// EstimateChunks predicts the chunk count for text using the same target
// chunk size assumptions as the segmenter.
func EstimateChunks(text string, targetChunkSize int) Estimate {
	if targetChunkSize <= 0 {
		targetChunkSize = segment.DefaultChunkSize
	}

	totalWords := WordCount(text)
	wordsPerChunk := targetChunkSize / avgCharsPerWord
	if wordsPerChunk < 1 {
		wordsPerChunk = 1
	}

	return Estimate{
		TotalWords:      totalWords,
		EstimatedChunks: int(math.Ceil(float64(totalWords) / float64(wordsPerChunk))),
	}
}

// Recommendation is a chunk-size/overlap pair suggested for a document.
type Recommendation struct {
	TargetChunkSize int      `json:"target_chunk_size"`
	Overlap         int      `json:"overlap"`
	Estimate        Estimate `json:"estimate"`
}

// RecommendChunking picks a chunk-size/overlap pair that lands the estimated
// chunk count inside the recommended range where possible. Sizing starts at
// the segmenter default and is halved or doubled until the estimate fits or
// the size bounds are reached.
func RecommendChunking(text string) Recommendation {
	size := segment.DefaultChunkSize
	est := EstimateChunks(text, size)

	for est.EstimatedChunks < minRecommendedChunks && size > minChunkSize {
		size = max(size/2, minChunkSize)
		est = EstimateChunks(text, size)
	}
	for est.EstimatedChunks > maxRecommendedChunks && size < maxChunkSize {
		size = min(size*2, maxChunkSize)
		est = EstimateChunks(text, size)
	}

	return Recommendation{
		TargetChunkSize: size,
		Overlap:         size / 20,
		Estimate:        est,
	}
}

// ValidateCoverage verifies how much of the source text is represented by
// the stored chunks, using word counts as a conservative proxy. Overlapping
// chunk regions are double-counted, which biases the ratio toward optimism;
// the ratio is clamped to 1.0 rather than corrected.
func ValidateCoverage(sourceText string, storedChunks []common.Chunk) common.CoverageReport {
	sourceWords := WordCount(sourceText)

	chunkWords := 0
	for _, c := range storedChunks {
		chunkWords += WordCount(c.Content)
	}

	ratio := 0.0
	if sourceWords > 0 {
		ratio = math.Min(1.0, float64(chunkWords)/float64(sourceWords))
	}

	status := common.CoverageInsufficient
	if ratio >= CoverageStandard {
		status = common.CoverageGood
	}

	return common.CoverageReport{
		CoverageRatio: ratio,
		Status:        status,
		MeetsStandard: status == common.CoverageGood,
		SourceWords:   sourceWords,
		ChunkWords:    chunkWords,
	}
}
