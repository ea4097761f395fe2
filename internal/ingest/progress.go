package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/groupcart/catalog-cli/internal/model"
)

// LoadProgress reads a checkpoint file. A missing file means a fresh run
// and returns a new JobProgress with a generated run ID.
func LoadProgress(path string) (*model.JobProgress, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &model.JobProgress{RunID: uuid.NewString()}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read progress %s", path)
	}

	var p model.JobProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse progress %s", path)
	}
	if p.RunID == "" {
		p.RunID = uuid.NewString()
	}
	return &p, nil
}

// SaveProgress writes the checkpoint through a temp file and rename so an
// interrupted write never leaves a half-written checkpoint behind.
func SaveProgress(path string, p *model.JobProgress) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return eris.Wrap(err, "ingest: marshal progress")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "ingest: create progress temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrap(err, "ingest: write progress")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "ingest: close progress temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "ingest: rename progress to %s", path)
	}
	return nil
}

// ClearProgress removes the checkpoint file after a run completes. A
// missing file is not an error.
func ClearProgress(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "ingest: remove progress %s", path)
	}
	return nil
}
