package filestorage

import (
	"io"
)

// Upload is a file received from a client
type Upload struct {
	Filename string // Original filename
	Size     int64  // Size in bytes, 0 when unknown
	Reader   io.Reader
}

// Spool holds uploaded files for the duration of their processing
type Spool interface {
	// Save copies the upload into the spool and returns the path it was stored under
	Save(upload Upload) (string, error)

	// Open returns the stored content of path
	Open(path string) (io.ReadCloser, error)

	// Remove deletes a spooled file; removing a missing file is not an error
	Remove(path string) error
}
