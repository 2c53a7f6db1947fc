package app

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	kindPerception = "perception"
	kindWorldview  = "worldview"

	maxRecordBytes = 8 << 20
)

func parseKind(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case kindPerception, "perceptions":
		return kindPerception, nil
	case kindWorldview, "worldviews":
		return kindWorldview, nil
	default:
		return "", fmt.Errorf("--kind must be perception or worldview")
	}
}

// record is one JSON object read from an input file. Line is 1-based for
// JSONL files and the array position (1-based) for JSON arrays.
type record struct {
	Path string
	Line int
	Raw  json.RawMessage
}

func (r record) String() string {
	return fmt.Sprintf("%s:%d", r.Path, r.Line)
}

// readRecords reads a .jsonl file line by line, or a .json file holding one
// object or an array of objects. Blank JSONL lines are ignored.
func readRecords(path string) ([]record, error) {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return readJSONLines(path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%s: malformed JSON array: %w", path, err)
		}
		out := make([]record, 0, len(items))
		for i, item := range items {
			out = append(out, record{Path: path, Line: i + 1, Raw: item})
		}
		return out, nil
	}
	return []record{{Path: path, Line: 1, Raw: trimmed}}, nil
}

func readJSONLines(path string) ([]record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)

	var out []record
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		out = append(out, record{Path: path, Line: line, Raw: append(json.RawMessage(nil), text...)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return out, nil
}

// collectRecordFiles returns .json and .jsonl files. root may be a single file.
func collectRecordFiles(root string, recursive bool) ([]string, error) {
	cleanRoot := strings.TrimSpace(root)
	if cleanRoot == "" {
		return nil, fmt.Errorf("path is empty")
	}

	info, err := os.Stat(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", cleanRoot, err)
	}
	if !info.IsDir() {
		if !isRecordFile(cleanRoot) {
			return nil, fmt.Errorf("%s is not a .json or .jsonl file", cleanRoot)
		}
		return []string{cleanRoot}, nil
	}

	var files []string
	if !recursive {
		entries, err := os.ReadDir(cleanRoot)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", cleanRoot, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			if isRecordFile(entry.Name()) {
				files = append(files, filepath.Join(cleanRoot, entry.Name()))
			}
		}
		sort.Strings(files)
		return files, nil
	}

	err = filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != cleanRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if isRecordFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", cleanRoot, err)
	}

	sort.Strings(files)
	return files, nil
}

func isRecordFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".json" || ext == ".jsonl"
}
