package graph

import (
	"os"
	"path/filepath"
)

// Directory is an Entry whose artifact is a directory tree. Its signature
// is the recursive map of every regular file found under it.
type Directory struct {
	nodeBase
	path string
}

func (d *Directory) Path() string   { return d.path }
func (d *Directory) IsDir() bool    { return true }
func (d *Directory) String() string { return d.path }

func (d *Directory) Signature() (EntrySignature, error) {
	fi, err := os.Lstat(d.path)
	if err != nil {
		return EntrySignature{}, err
	}
	if !fi.IsDir() {
		return EntrySignature{}, &ConfigurationError{Msg: d.path + " is not a directory"}
	}
	files := make(map[string]FileSignature)
	err = filepath.Walk(d.path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.path, p)
		if err != nil {
			return err
		}
		files[rel] = FileSignature{
			ModTimeUnixNano: info.ModTime().UnixNano(),
			IsRegular:       info.Mode().IsRegular(),
		}
		return nil
	})
	if err != nil {
		return EntrySignature{}, err
	}
	return EntrySignature{Dir: &DirSignature{IsDirectory: true, Files: files}}, nil
}

// Remove recursively deletes the directory. A missing directory is not an
// error.
func (d *Directory) Remove() error {
	return os.RemoveAll(d.path)
}

// Prepare ensures the directory's parent exists (the directory itself is
// created by its builder).
func (d *Directory) Prepare() error {
	return os.MkdirAll(filepath.Dir(d.path), 0755)
}
