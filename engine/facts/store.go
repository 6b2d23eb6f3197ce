// Package facts provides the on-disk nutrition fact store. Facts live in a
// JSONL file, one record per line, produced offline by cmd/fetch-foods and
// consumed by cmd/indexer. The store is append-only; indexed facts are never
// rewritten.
package facts

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MacroScout/macroscout/engine/domain"
)

// FormatFactText renders the canonical fact text used for embedding.
func FormatFactText(f domain.NutritionFact) string {
	return fmt.Sprintf("%s — %.0f kcal/100g, %.1f g protein/100g, %.1f g carbs/100g, %.1f g fat/100g",
		f.Name, f.Calories100g, f.Protein100g, f.Carbs100g, f.Fat100g)
}

// Load reads all facts from a JSONL file. Blank lines are skipped; a
// malformed line is an error because it would silently shift index positions.
func Load(path string) ([]domain.NutritionFact, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("facts: open %s: %w", path, err)
	}
	defer file.Close()

	var out []domain.NutritionFact
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var f domain.NutritionFact
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("facts: %s line %d: %w", path, line, err)
		}
		out = append(out, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("facts: scan %s: %w", path, err)
	}
	return out, nil
}

// Append writes facts to the end of a JSONL file, creating it (and its
// directory) if needed. Facts without a FactText get the canonical one.
func Append(path string, toAdd []domain.NutritionFact) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("facts: mkdir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("facts: open %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, f := range toAdd {
		if f.FactText == "" {
			f.FactText = FormatFactText(f)
		}
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("facts: marshal %q: %w", f.Name, err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("facts: write %s: %w", path, err)
	}
	return nil
}
