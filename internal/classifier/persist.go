package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
)

// artifactVersion is bumped whenever the feature transform or model layout
// changes incompatibly; older artifacts are then retrained rather than read.
const artifactVersion = 1

type artifact struct {
	Version int    `json:"version"`
	Model   *Model `json:"model"`
}

// Save writes the model artifact atomically (temp file + rename) so a
// crashed training run never leaves a truncated artifact behind.
func Save(m *Model, path string) error {
	data, err := json.Marshal(artifact{Version: artifactVersion, Model: m})
	if err != nil {
		return fmt.Errorf("encode classifier artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write classifier artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize classifier artifact: %w", err)
	}
	return nil
}

// Load reads a persisted model and verifies it against the current
// knowledge base hash. A hash or version mismatch returns ErrArtifactStale
// so callers retrain instead of serving answers from an outdated model.
func Load(path, kbHash string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classifier artifact %s: %w", path, err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode classifier artifact: %w", err)
	}
	if a.Model == nil {
		return nil, fmt.Errorf("classifier artifact has no model")
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("%w: artifact version %d, want %d",
			domerrors.ErrArtifactStale, a.Version, artifactVersion)
	}
	if kbHash != "" && a.Model.KBHash != kbHash {
		return nil, fmt.Errorf("%w: knowledge base changed since training",
			domerrors.ErrArtifactStale)
	}
	return a.Model, nil
}

// LoadOrTrain loads a persisted artifact when it is present and still
// matches the knowledge base hash; otherwise it trains a fresh model and
// persists it. The returned bool is true when training happened.
func LoadOrTrain(path, kbHash string, examples []Example, opts TrainOptions) (*Model, bool, error) {
	if m, err := Load(path, kbHash); err == nil {
		return m, false, nil
	}

	m := Train(examples, opts)
	m.KBHash = kbHash
	if err := Save(m, path); err != nil {
		// A working in-memory model beats failing startup over persistence.
		return m, true, err
	}
	return m, true, nil
}
