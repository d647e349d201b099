package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// MemoryIndex is an in-memory brute-force similarity index over unit vectors.
// Scores are clamped cosine similarity, so they stay in [0,1] with 1 meaning
// identical. Ties break by insertion order.
type MemoryIndex struct {
	dimensions int
	chunks     []*models.Chunk
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an empty index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Upsert appends chunks with their vectors. Vector contents are copied so the
// index owns its data.
func (m *MemoryIndex) Upsert(ctx context.Context, chunks []*models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, chunk := range chunks {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		m.chunks = append(m.chunks, chunk)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns up to limit chunks ranked by descending relevance score.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, limit int) ([]*Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || len(m.chunks) == 0 {
		return nil, nil
	}
	results := make([]*Result, len(m.chunks))
	for i, vec := range m.vectors {
		var dot float64
		for j := 0; j < m.dimensions; j++ {
			dot += float64(query[j] * vec[j])
		}
		results[i] = &Result{Chunk: m.chunks[i], Score: clampScore(dot)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > len(results) {
		limit = len(results)
	}
	return results[:limit], nil
}

// clampScore maps cosine similarity of unit vectors into [0,1].
func clampScore(dot float64) float64 {
	return math.Max(0, math.Min(1, dot))
}

// Size returns the number of indexed chunks.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// Save persists the index to path so a restarted server can serve without
// re-embedding. Format: dimensions (4), n (4), then per entry: chunk JSON
// length (4), chunk JSON, vector (dimensions*4 bytes). Directory is created
// if needed.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.chunks))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, chunk := range m.chunks {
		payload, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("marshal chunk: %w", err)
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(len(payload))); err != nil {
			return fmt.Errorf("write chunk len: %w", err)
		}
		if _, err := f.Write(payload); err != nil {
			return fmt.Errorf("write chunk: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads a snapshot from path, replacing the index contents. Dimensions
// must match. A missing file is not an error; the index is left unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: snapshot has %d, index expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = make([]*models.Chunk, 0, n)
	m.vectors = make([][]float32, 0, n)
	vecBuf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var payloadLen uint32
		if err := binary.Read(f, binary.LittleEndian, &payloadLen); err != nil {
			return fmt.Errorf("read chunk len: %w", err)
		}
		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(f, payload); err != nil {
			return fmt.Errorf("read chunk: %w", err)
		}
		var chunk models.Chunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			return fmt.Errorf("unmarshal chunk: %w", err)
		}
		if _, err := io.ReadFull(f, vecBuf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		m.chunks = append(m.chunks, &chunk)
		m.vectors = append(m.vectors, bytesToFloat32Slice(vecBuf))
	}
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
