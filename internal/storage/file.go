package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// FileStore keeps one directory per run holding metadata.json and
// spectrum.csv.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) Init(_ context.Context) error {
	if s.baseDir == "" {
		return errors.New("file store directory is required")
	}
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *FileStore) SaveRun(_ context.Context, run Run) error {
	runDir := filepath.Join(s.baseDir, run.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}

	meta := run.Summary()
	if meta.SchemaVersion == 0 {
		meta.SchemaVersion = CurrentSchemaVersion
	}
	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}

	return writeSpectrum(filepath.Join(runDir, "spectrum.csv"), run.Experimental, run.Theoretical)
}

func writeSpectrum(path string, exp, teor []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"index", "experimental", "theoretical"}); err != nil {
		return err
	}
	n := max(len(exp), len(teor))
	for i := 0; i < n; i++ {
		row := []string{strconv.Itoa(i), "", ""}
		if i < len(exp) {
			row[1] = strconv.FormatFloat(exp[i], 'g', -1, 64)
		}
		if i < len(teor) {
			row[2] = strconv.FormatFloat(teor[i], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func readSpectrum(path string) ([]float64, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return nil, nil, nil
	}

	var exp, teor []float64
	for i, rec := range records[1:] {
		if rec[1] != "" {
			v, err := strconv.ParseFloat(rec[1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
			}
			exp = append(exp, v)
		}
		if rec[2] != "" {
			v, err := strconv.ParseFloat(rec[2], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
			}
			teor = append(teor, v)
		}
	}
	return exp, teor, nil
}

func (s *FileStore) readMeta(id string) (Run, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		return Run{}, err
	}
	return DecodeRun(data)
}

func (s *FileStore) GetRun(_ context.Context, id string) (Run, bool, error) {
	run, err := s.readMeta(id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}

	exp, teor, err := readSpectrum(filepath.Join(s.baseDir, id, "spectrum.csv"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Run{}, false, err
	}
	run.Experimental, run.Theoretical = exp, teor
	return run, true, nil
}

// ListRuns skips directories without readable metadata.
func (s *FileStore) ListRuns(_ context.Context) ([]Run, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Run{}, nil
		}
		return nil, err
	}

	runs := make([]Run, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		run, err := s.readMeta(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	sortNewestFirst(runs)
	return runs, nil
}
