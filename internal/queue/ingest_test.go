package queue

import (
	"encoding/json"
	"testing"

	"github.com/papyrus-lab/papyrus/pkg/segment"
)

func TestIngestMessageValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "complete message",
			payload: `{"document_id":"doc-1","title":"Attention Is All You Need","text_key":"texts/doc-1.txt"}`,
			wantErr: false,
		},
		{
			name:    "missing title",
			payload: `{"document_id":"doc-1","text_key":"texts/doc-1.txt"}`,
			wantErr: true,
		},
		{
			name:    "missing text key",
			payload: `{"document_id":"doc-1","title":"Attention Is All You Need"}`,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			data := new(IngestDocumentMsg)
			if err := json.Unmarshal([]byte(tc.payload), data); err != nil {
				t.Fatalf("failed to unmarshal payload: %v", err)
			}

			err := msgValidator.Struct(data)
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestSegmentConfigFromMsg(t *testing.T) {
	t.Parallel()

	data := &IngestDocumentMsg{
		Strategy:  "paragraph_based",
		ChunkSize: 1500,
	}

	cfg := SegmentConfigFromMsg(data)
	if cfg.Strategy != segment.StrategyParagraph {
		t.Errorf("expected strategy %q, got %q", segment.StrategyParagraph, cfg.Strategy)
	}
	if cfg.TargetChunkSize != 1500 {
		t.Errorf("expected chunk size 1500, got %d", cfg.TargetChunkSize)
	}

	empty := SegmentConfigFromMsg(&IngestDocumentMsg{})
	if empty.Strategy != "" || empty.TargetChunkSize != 0 {
		t.Errorf("expected zero config for message without overrides, got %+v", empty)
	}
}
