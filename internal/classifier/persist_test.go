package classifier

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "classifier.json")

	m := Train(trainingExamples(), TrainOptions{})
	m.KBHash = "abc123"
	if err := Save(m, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path, "abc123")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(loaded.Classes, m.Classes) {
		t.Error("classes changed across persistence")
	}

	// The loaded model must classify identically to the trained one.
	want := m.Classify("tuition fee")
	got := loaded.Classify("tuition fee")
	if got != want {
		t.Errorf("loaded model result %+v, want %+v", got, want)
	}
}

func TestLoadRejectsStaleHash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "classifier.json")

	m := Train(trainingExamples(), TrainOptions{})
	m.KBHash = "old-hash"
	if err := Save(m, path); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path, "new-hash")
	if !errors.Is(err, domerrors.ErrArtifactStale) {
		t.Errorf("Load with changed hash = %v, want ErrArtifactStale", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), "h")
	if err == nil {
		t.Error("expected error for missing artifact")
	}
}

func TestLoadCorruptArtifact(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "classifier.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, "h"); err == nil {
		t.Error("expected error for corrupt artifact")
	}
}

func TestLoadOrTrain(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "classifier.json")
	examples := trainingExamples()

	// First call trains and persists.
	m1, trained, err := LoadOrTrain(path, "hash-v1", examples, TrainOptions{})
	if err != nil {
		t.Fatalf("LoadOrTrain() error: %v", err)
	}
	if !trained {
		t.Error("first call should train")
	}
	if !m1.Trained() {
		t.Error("trained model unusable")
	}

	// Second call with the same hash loads the artifact.
	_, trained, err = LoadOrTrain(path, "hash-v1", examples, TrainOptions{})
	if err != nil {
		t.Fatalf("second LoadOrTrain() error: %v", err)
	}
	if trained {
		t.Error("second call should load, not retrain")
	}

	// Hash change forces retraining.
	_, trained, err = LoadOrTrain(path, "hash-v2", examples, TrainOptions{})
	if err != nil {
		t.Fatalf("third LoadOrTrain() error: %v", err)
	}
	if !trained {
		t.Error("changed hash should force retraining")
	}
}
