package main

import (
	"os"
	"path/filepath"

	"github.com/docc-lab/pythia/internal/model"
	"github.com/docc-lab/pythia/internal/tracewire"
)

func readTraceFile(path string) (*model.Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return tracewire.Unmarshal(data)
}

func readTraceFolder(dir string) ([]*model.Trace, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []*model.Trace
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		t, err := readTraceFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func traceToFile(t *model.Trace) tracewire.Trace {
	return tracewire.FromTrace(t)
}
