package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadPassages reads knowledge-base text from path, which may be a
// single file or a directory. Supported extensions: .txt and .md are
// split into paragraph passages; .html/.htm have their visible text
// extracted first. Other files are ignored. Directory entries are
// processed in lexical order so passage IDs are stable across runs.
func LoadPassages(path string) ([]Passage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	files := []string{path}
	if info.IsDir() {
		files = nil
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			files = append(files, filepath.Join(path, e.Name()))
		}
		sort.Strings(files)
	}

	var passages []Passage
	for _, f := range files {
		chunks, err := loadFile(f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
		base := filepath.Base(f)
		for i, text := range chunks {
			passages = append(passages, Passage{
				ID:     fmt.Sprintf("%s#%d", base, i),
				Source: base,
				Text:   text,
			})
		}
	}
	return passages, nil
}

// loadFile reads one file and splits it into passage texts.
func loadFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := string(raw)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		// keep as-is
	case ".html", ".htm":
		text = ExtractText(text)
	default:
		return nil, nil
	}

	return SplitParagraphs(text), nil
}

// SplitParagraphs splits text on blank lines into trimmed, non-empty
// passages. Single newlines inside a paragraph are preserved.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var passages []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			passages = append(passages, block)
		}
	}
	return passages
}
