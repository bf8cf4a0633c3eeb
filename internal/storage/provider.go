// Package storage defines the corpus file-system abstraction.
package storage

import "time"

// FileInfo is metadata for a single corpus file.
type FileInfo struct {
	Path      string    `json:"path"` // slash-separated, relative to the corpus root
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for corpus file operations.
type Provider interface {
	// List returns metadata for every file under dir (relative to the corpus
	// root), excluding ignored paths.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to the corpus root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the corpus root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the corpus root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to the corpus root).
	Move(oldPath, newPath string) error
}
