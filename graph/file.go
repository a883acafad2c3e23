package graph

import (
	"os"
	"path/filepath"
)

// File is an Entry whose artifact is a single regular file.
type File struct {
	nodeBase
	path string
}

func (f *File) Path() string   { return f.path }
func (f *File) IsDir() bool    { return false }
func (f *File) String() string { return f.path }

func (f *File) Signature() (EntrySignature, error) {
	fi, err := os.Lstat(f.path)
	if err != nil {
		return EntrySignature{}, err
	}
	return EntrySignature{File: &FileSignature{
		ModTimeUnixNano: fi.ModTime().UnixNano(),
		IsRegular:       fi.Mode().IsRegular(),
	}}, nil
}

// Remove deletes the file. A missing file is not an error.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Prepare ensures the file's parent directory exists.
func (f *File) Prepare() error {
	return os.MkdirAll(filepath.Dir(f.path), 0755)
}
