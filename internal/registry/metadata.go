// Package registry catalogs the certificate bundles kept under the
// bundles directory. Each bundle is one directory holding the issued
// material plus an info.json manifest; a directory without a manifest is
// invisible to the catalog.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimeFormat is the timestamp layout used in bundle manifests.
const TimeFormat = "2006-01-02 15:04:05"

// MetadataFile is the manifest filename inside each bundle directory.
const MetadataFile = "info.json"

// Timestamp marshals as TimeFormat in local time.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(TimeFormat))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.ParseInLocation(TimeFormat, strings.TrimSpace(raw), time.Local)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	t.Time = parsed
	return nil
}

// Metadata is the bundle manifest.
type Metadata struct {
	CommonName   string    `json:"common_name"`
	DNSNames     []string  `json:"dns_names"`
	CreatedAt    Timestamp `json:"created_at"`
	CreatedBy    string    `json:"created_by"`
	ValidityDays int       `json:"validity_days"`
	ExpiresAt    Timestamp `json:"expires_at"`
}

// WriteMetadata stores the manifest in dir.
func WriteMetadata(dir string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(dir, MetadataFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// LoadMetadata reads the manifest from dir. A missing manifest returns
// os.ErrNotExist through the wrapped error.
func LoadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &meta, nil
}
