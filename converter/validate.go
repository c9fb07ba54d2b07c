package converter

import (
	"io"
	"strings"
)

// UploadedFile is one file part of a conversion request
type UploadedFile interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// ValidateUploads checks that at least one named file was sent and that every extension is allowed.
// allowed holds lower case extensions without the dot.
func ValidateUploads(files []UploadedFile, allowed map[string]bool) error {
	if len(files) == 0 {
		return ErrNoFilesProvided
	}
	if files[0].Name() == "" {
		return ErrNoFileSelected
	}
	for _, file := range files {
		if !allowed[extension(file.Name())] {
			return &DisallowedExtensionError{Filename: file.Name()}
		}
	}
	return nil
}

// extension is the lower cased text after the last dot, or "" when there is none
func extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
