package ports

// FileSystem abstracts the file operations used for config loading and
// frame dumps.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the file at path with data.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path string) error

	// Exists reports whether path exists.
	Exists(path string) (bool, error)
}
