package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumManifest is the .checksums file written next to the config file.
// Locking the config records its BLAKE3 hash; verification detects edits
// made outside the sanctioned workflow.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// HashFile computes the BLAKE3 hash of a file.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func manifestPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), ".checksums")
}

// Lock records the current hash of the config file in the manifest,
// authorizing its present contents.
func Lock(configPath string) error {
	hash, err := HashFile(configPath)
	if err != nil {
		return err
	}
	manifest := ChecksumManifest{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Hashes:      map[string]string{filepath.Base(configPath): hash},
	}
	data, err := yaml.Marshal(&manifest)
	if err != nil {
		return fmt.Errorf("marshal checksums: %w", err)
	}
	if err := os.WriteFile(manifestPath(configPath), data, 0o644); err != nil {
		return fmt.Errorf("write checksums: %w", err)
	}
	return nil
}

// Verify checks the config file against the manifest. A missing manifest is
// not an error: integrity checking is opt-in via Lock.
func Verify(configPath string) error {
	data, err := os.ReadFile(manifestPath(configPath))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read checksums: %w", err)
	}

	var manifest ChecksumManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parse checksums: %w", err)
	}

	name := filepath.Base(configPath)
	expected, ok := manifest.Hashes[name]
	if !ok {
		return fmt.Errorf("config file %s not in checksums manifest; run lock again", name)
	}
	actual, err := HashFile(configPath)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("hash mismatch for %s: expected %s, got %s", name, expected, actual)
	}
	return nil
}
