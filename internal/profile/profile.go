package profile

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/jobfit/internal/utils"
	"go.uber.org/zap"
)

const (
	IndexFileName = ".profile-index.json"

	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

var now = time.Now

type Options struct {
	Name         string
	ResumePath   string
	DataDir      string
	ChunkSize    int
	ChunkOverlap int
}

// Profile is the candidate resume loaded once per run.
type Profile struct {
	Name   string
	Text   string
	Hash   string
	Chunks []string
	// Overlap is the rune overlap between consecutive chunks.
	Overlap int
	// Reused is true when the side index matched and was not rebuilt.
	Reused bool
}

// Index is the content-hash keyed side index persisted in the data directory.
type Index struct {
	Hash         string    `json:"hash"`
	ChunkSize    int       `json:"chunk_size"`
	ChunkOverlap int       `json:"chunk_overlap"`
	Chunks       []string  `json:"chunks"`
	CreatedAt    time.Time `json:"created_at"`
}

func (i *Index) matches(hash string, size, overlap int) bool {
	return i != nil && i.Hash == hash && i.ChunkSize == size && i.ChunkOverlap == overlap
}

// Load reads the resume verbatim and reuses the side index when its key matches,
// otherwise the index is rebuilt and rewritten.
func Load(opts Options, logger *zap.Logger) (*Profile, error) {
	data, err := os.ReadFile(opts.ResumePath)
	if err != nil {
		return nil, fmt.Errorf("read resume %q: %w", opts.ResumePath, err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("resume %q is empty", opts.ResumePath)
	}

	size, overlap := normalizeChunking(opts.ChunkSize, opts.ChunkOverlap)
	hash := Hash(text)

	p := &Profile{Name: strings.TrimSpace(opts.Name), Text: text, Hash: hash, Overlap: overlap}

	indexPath := filepath.Join(opts.DataDir, IndexFileName)
	existing, err := readIndex(indexPath)
	if err != nil {
		logger.Warn("profile index is unreadable, rebuilding", zap.String("path", indexPath), zap.Error(err))
	}

	if existing.matches(hash, size, overlap) {
		p.Chunks = existing.Chunks
		p.Reused = true
		logger.Debug("profile index reused", zap.String("hash", hash[:12]), zap.Int("chunks", len(p.Chunks)))
		return p, nil
	}

	index := &Index{
		Hash:         hash,
		ChunkSize:    size,
		ChunkOverlap: overlap,
		Chunks:       Chunk(text, size, overlap),
		CreatedAt:    now().UTC(),
	}

	encoded, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile index: %w", err)
	}
	if err := utils.WriteFileAtomic(indexPath, encoded); err != nil {
		return nil, fmt.Errorf("write profile index: %w", err)
	}

	p.Chunks = index.Chunks
	logger.Info("profile index rebuilt", zap.String("hash", hash[:12]), zap.Int("chunks", len(p.Chunks)))

	return p, nil
}

// ApproxTokens estimates the resume size in tokens from its chunks, counting
// each overlap once. Four runes per token is a rough ratio for prose.
func (p *Profile) ApproxTokens() int {
	runes := 0
	for i, chunk := range p.Chunks {
		n := utf8.RuneCountInString(chunk)
		if i > 0 {
			n -= p.Overlap
		}
		if n > 0 {
			runes += n
		}
	}
	return (runes + 3) / 4
}

// Hash is the hex sha256 of the resume text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum[:])
}

// Chunk splits text into windows of size runes, each overlapping the previous one.
func Chunk(text string, size, overlap int) []string {
	size, overlap = normalizeChunking(size, overlap)

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}

func normalizeChunking(size, overlap int) (int, int) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return size, overlap
}

func readIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}

	return &index, nil
}
