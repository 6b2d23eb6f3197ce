package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MacroScout/macroscout/engine/domain"
)

// Artifact file names inside an index directory.
const (
	VectorsFile  = "vectors.json"
	MetadataFile = "metadata.jsonl"
	InfoFile     = "index_info.json"
)

// Save persists the index: the vector matrix, the parallel metadata list in
// the exact vector order, and the info record.
func (x *Flat) Save(dir string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.available {
		return fmt.Errorf("index: save: index is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("index: mkdir %s: %w", dir, err)
	}

	vecData, err := json.Marshal(x.vectors)
	if err != nil {
		return fmt.Errorf("index: marshal vectors: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, VectorsFile), vecData, 0o644); err != nil {
		return fmt.Errorf("index: write vectors: %w", err)
	}

	metaFile, err := os.Create(filepath.Join(dir, MetadataFile))
	if err != nil {
		return fmt.Errorf("index: create metadata: %w", err)
	}
	w := bufio.NewWriter(metaFile)
	for _, f := range x.meta {
		line, err := json.Marshal(f)
		if err != nil {
			metaFile.Close()
			return fmt.Errorf("index: marshal metadata %q: %w", f.Name, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		metaFile.Close()
		return fmt.Errorf("index: write metadata: %w", err)
	}
	if err := metaFile.Close(); err != nil {
		return fmt.Errorf("index: close metadata: %w", err)
	}

	infoData, err := json.MarshalIndent(x.info, "", "  ")
	if err != nil {
		return fmt.Errorf("index: marshal info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, InfoFile), infoData, 0o644); err != nil {
		return fmt.Errorf("index: write info: %w", err)
	}
	return nil
}

// Load reads a persisted index into x. The vector and metadata counts must
// match; a mismatch means the positional coupling is broken and the index
// stays unavailable.
func (x *Flat) Load(dir string) error {
	vecData, err := os.ReadFile(filepath.Join(dir, VectorsFile))
	if err != nil {
		return fmt.Errorf("index: read vectors: %w", err)
	}
	var vectors [][]float32
	if err := json.Unmarshal(vecData, &vectors); err != nil {
		return fmt.Errorf("index: parse vectors: %w", err)
	}

	metaFile, err := os.Open(filepath.Join(dir, MetadataFile))
	if err != nil {
		return fmt.Errorf("index: read metadata: %w", err)
	}
	defer metaFile.Close()

	var meta []domain.NutritionFact
	scanner := bufio.NewScanner(metaFile)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var f domain.NutritionFact
		if err := json.Unmarshal(scanner.Bytes(), &f); err != nil {
			return fmt.Errorf("index: parse metadata: %w", err)
		}
		meta = append(meta, f)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("index: scan metadata: %w", err)
	}

	if len(meta) != len(vectors) {
		return fmt.Errorf("index: %d vectors but %d metadata entries", len(vectors), len(meta))
	}

	var info Info
	infoData, err := os.ReadFile(filepath.Join(dir, InfoFile))
	if err != nil {
		return fmt.Errorf("index: read info: %w", err)
	}
	if err := json.Unmarshal(infoData, &info); err != nil {
		return fmt.Errorf("index: parse info: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = vectors
	x.meta = meta
	x.info = info
	x.available = len(vectors) > 0
	return nil
}

// Open creates an index and loads it from dir. A missing or unreadable index
// is not fatal: the index is returned unavailable and the failure is logged,
// matching the caller contract that search never throws.
func Open(dir string, embedder Embedder, logger *slog.Logger) *Flat {
	x := NewFlat(embedder, logger)
	if err := x.Load(dir); err != nil {
		x.logger.Warn("index unavailable", "dir", dir, "err", err)
	}
	return x
}
