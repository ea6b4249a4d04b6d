package pgx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/papyrus-lab/papyrus/pkg/ai"
	"github.com/papyrus-lab/papyrus/pkg/common"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeConn is an in-memory pgxIConn that mimics the upsert semantics of the
// real schema: documents and entities conflict on their public id,
// relationships conflict on (source, target, type).
type fakeConn struct {
	mu       sync.Mutex
	nextID   int64
	docs     map[string]int64
	entities map[string]int64
	edges    map[string]struct{}
	chunks   map[string]int
	failKeys map[string]bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		docs:     make(map[string]int64),
		entities: make(map[string]int64),
		edges:    make(map[string]struct{}),
		chunks:   make(map[string]int),
		failKeys: make(map[string]bool),
	}
}

func (c *fakeConn) id() int64 {
	c.nextID++
	return c.nextID
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgxv5.Row {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case strings.Contains(sql, "INSERT INTO documents"):
		publicID := args[0].(string)
		rowID, ok := c.docs[publicID]
		if !ok {
			rowID = c.id()
			c.docs[publicID] = rowID
		}
		return fakeRow{vals: []any{rowID}}

	case strings.Contains(sql, "SELECT id FROM documents"):
		rowID, ok := c.docs[args[0].(string)]
		if !ok {
			return fakeRow{err: pgxv5.ErrNoRows}
		}
		return fakeRow{vals: []any{rowID}}

	case strings.Contains(sql, "(xmax = 0)"):
		key := fmt.Sprintf("%d/%s", args[0].(int64), args[1].(string))
		rowID, ok := c.entities[key]
		if ok {
			return fakeRow{vals: []any{rowID, false}}
		}
		rowID = c.id()
		c.entities[key] = rowID
		return fakeRow{vals: []any{rowID, true}}

	case strings.Contains(sql, "'unknown'"):
		key := fmt.Sprintf("%d/%s", args[0].(int64), args[1].(string))
		rowID, ok := c.entities[key]
		if !ok {
			rowID = c.id()
			c.entities[key] = rowID
		}
		return fakeRow{vals: []any{rowID}}
	}

	return fakeRow{err: fmt.Errorf("unexpected query: %s", sql)}
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (pgxv5.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.Contains(sql, "INSERT INTO relationships") {
		key := fmt.Sprintf("%d/%d/%s", args[1].(int64), args[2].(int64), args[3].(string))
		if _, ok := c.edges[key]; ok {
			return &fakeRows{}, nil
		}
		c.edges[key] = struct{}{}
		return &fakeRows{n: 1}, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", sql)
}

func (c *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.Contains(sql, "INSERT INTO document_chunks") {
		key := args[0].(string)
		if c.failKeys[key] {
			return pgconn.CommandTag{}, errors.New("write refused")
		}
		c.chunks[key]++
		return pgconn.CommandTag{}, nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %s", sql)
}

func (c *fakeConn) Begin(context.Context) (pgxv5.Tx, error) {
	return fakeTx{conn: c}, nil
}

type fakeTx struct {
	pgxv5.Tx
	conn *fakeConn
}

func (t fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgxv5.Row {
	return t.conn.QueryRow(ctx, sql, args...)
}

func (t fakeTx) Query(ctx context.Context, sql string, args ...any) (pgxv5.Rows, error) {
	return t.conn.Query(ctx, sql, args...)
}

func (t fakeTx) Commit(context.Context) error   { return nil }
func (t fakeTx) Rollback(context.Context) error { return nil }

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan arity mismatch: %d targets, %d values", len(dest), len(r.vals))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.vals[i].(int64)
		case *bool:
			*p = r.vals[i].(bool)
		case *string:
			*p = r.vals[i].(string)
		case *float64:
			*p = r.vals[i].(float64)
		default:
			return fmt.Errorf("unsupported scan target %T", d)
		}
	}
	return nil
}

type fakeRows struct {
	pgxv5.Rows
	n   int
	idx int
}

func (r *fakeRows) Next() bool {
	if r.idx < r.n {
		r.idx++
		return true
	}
	return false
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }

// embedStoreClient embeds every input as the same vector. A non-nil batchErr
// fails the batch endpoint; failInput fails single embedding of that content.
type embedStoreClient struct {
	batchErr  error
	failInput string

	mu          sync.Mutex
	batchCalls  int
	singleCalls int
}

func (c *embedStoreClient) Extract(context.Context, string, ...ai.GenerateOption) ([]common.RawEntity, []common.RawRelationship, error) {
	return nil, nil, errors.New("not implemented")
}

func (c *embedStoreClient) GenerateEmbedding(_ context.Context, input []byte) ([]float32, error) {
	c.mu.Lock()
	c.singleCalls++
	c.mu.Unlock()
	if c.failInput != "" && string(input) == c.failInput {
		return nil, errors.New("embedding refused")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (c *embedStoreClient) GenerateEmbeddings(_ context.Context, inputs [][]byte) ([][]float32, error) {
	c.mu.Lock()
	c.batchCalls++
	c.mu.Unlock()
	if c.batchErr != nil {
		return nil, c.batchErr
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func newTestStorage(conn *fakeConn, client *embedStoreClient) *IngestDBStorage {
	return NewIngestDBStorageWithConnection(conn, NewIngestDBStorageParams{
		AIClient:              client,
		MaxParallelEmbeddings: 2,
	})
}

func testChunks(contents ...string) []common.Chunk {
	chunks := make([]common.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = common.Chunk{
			Content:     content,
			ChunkNumber: i + 1,
			Strategy:    "hierarchical",
		}
	}
	return chunks
}

func TestStoreEntitiesIdempotentAcrossCalls(t *testing.T) {
	t.Parallel()

	s := newTestStorage(newFakeConn(), &embedStoreClient{})
	doc := common.DocumentRecord{ID: "doc-1", Title: "Attention Is All You Need"}
	entities := []common.Entity{{
		ID:         "transformer",
		Name:       "Transformer",
		Type:       "method",
		Properties: map[string]any{},
		Confidence: 1,
	}}
	relationships := []common.Relationship{{
		Source:     "transformer",
		Target:     "attention",
		Type:       "USES",
		Confidence: 1,
	}}

	first, err := s.StoreEntities(context.Background(), entities, relationships, doc)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if first.EntitiesCreated != 1 || first.EntitiesUpdated != 0 {
		t.Errorf("first call: expected 1 created / 0 updated, got %d / %d", first.EntitiesCreated, first.EntitiesUpdated)
	}
	if first.RelationshipsCreated != 1 {
		t.Errorf("first call: expected 1 relationship created, got %d", first.RelationshipsCreated)
	}
	if len(first.DanglingEdges) != 1 || first.DanglingEdges[0] != "attention" {
		t.Errorf("first call: expected dangling edge to attention, got %v", first.DanglingEdges)
	}

	second, err := s.StoreEntities(context.Background(), entities, relationships, doc)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if second.EntitiesCreated != 0 {
		t.Errorf("re-ingesting an identical entity must not create it again, got %d created", second.EntitiesCreated)
	}
	if second.EntitiesUpdated != 1 {
		t.Errorf("expected 1 updated on re-ingest, got %d", second.EntitiesUpdated)
	}
	if second.RelationshipsCreated != 0 {
		t.Errorf("re-ingesting an identical edge must not create it again, got %d", second.RelationshipsCreated)
	}
	if !second.Success {
		t.Errorf("expected success on re-ingest, got error %q", second.Error)
	}
}

func TestStoreVectorsBatchFastPath(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client := &embedStoreClient{}
	s := newTestStorage(conn, client)
	doc := common.DocumentRecord{ID: "doc-1", Title: "T"}

	result, err := s.StoreVectors(context.Background(), doc, testChunks("alpha", "beta", "gamma"))
	if err != nil {
		t.Fatalf("StoreVectors failed: %v", err)
	}
	if result.VectorsStored != 3 || result.ChunksFailed != 0 {
		t.Errorf("expected 3 stored / 0 failed, got %d / %d", result.VectorsStored, result.ChunksFailed)
	}
	if result.SuccessRate != 1.0 {
		t.Errorf("expected success rate 1.0, got %v", result.SuccessRate)
	}
	if client.batchCalls != 1 {
		t.Errorf("expected one batch embedding call, got %d", client.batchCalls)
	}
	if client.singleCalls != 0 {
		t.Errorf("batch fast path must not embed chunk-by-chunk, got %d single calls", client.singleCalls)
	}
	for n := 1; n <= 3; n++ {
		if conn.chunks[VectorKey("doc-1", n)] != 1 {
			t.Errorf("expected chunk %d stored exactly once, got %d", n, conn.chunks[VectorKey("doc-1", n)])
		}
	}
}

func TestStoreVectorsPartialEmbedFailure(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client := &embedStoreClient{
		batchErr:  errors.New("batch endpoint down"),
		failInput: "beta",
	}
	s := newTestStorage(conn, client)
	doc := common.DocumentRecord{ID: "doc-1", Title: "T"}

	result, err := s.StoreVectors(context.Background(), doc, testChunks("alpha", "beta", "gamma"))
	if err != nil {
		t.Fatalf("StoreVectors failed: %v", err)
	}
	if !result.Success {
		t.Errorf("one bad chunk must not fail the batch, got error %q", result.Error)
	}
	if result.VectorsStored != 2 || result.ChunksFailed != 1 {
		t.Errorf("expected 2 stored / 1 failed, got %d / %d", result.VectorsStored, result.ChunksFailed)
	}
	if math.Abs(result.SuccessRate-2.0/3.0) > 1e-9 {
		t.Errorf("expected success rate 2/3, got %v", result.SuccessRate)
	}
	if conn.chunks[VectorKey("doc-1", 2)] != 0 {
		t.Errorf("failed chunk must not be written")
	}
	if conn.chunks[VectorKey("doc-1", 1)] != 1 || conn.chunks[VectorKey("doc-1", 3)] != 1 {
		t.Errorf("surviving chunks must be written, got %v", conn.chunks)
	}
}

func TestStoreVectorsPartialWriteFailure(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	conn.failKeys[VectorKey("doc-1", 2)] = true
	s := newTestStorage(conn, &embedStoreClient{})
	doc := common.DocumentRecord{ID: "doc-1", Title: "T"}

	result, err := s.StoreVectors(context.Background(), doc, testChunks("alpha", "beta", "gamma"))
	if err != nil {
		t.Fatalf("StoreVectors failed: %v", err)
	}
	if result.VectorsStored != 2 || result.ChunksFailed != 1 {
		t.Errorf("expected 2 stored / 1 failed, got %d / %d", result.VectorsStored, result.ChunksFailed)
	}
	if !result.Success {
		t.Errorf("one refused write must not fail the batch, got error %q", result.Error)
	}
}
