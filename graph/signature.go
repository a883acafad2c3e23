package graph

// FileSignature is the on-disk identity of a regular file: its modification
// time and whether it is in fact a regular file (as opposed to e.g. a
// symlink or device node left behind after a type change).
type FileSignature struct {
	ModTimeUnixNano int64 `json:"mtime_unix_nano"`
	IsRegular       bool  `json:"is_regular_file"`
}

// DirSignature is the on-disk identity of a directory: the recursive map of
// every regular file found under it at signature time, keyed by path
// relative to the directory.
type DirSignature struct {
	IsDirectory bool                     `json:"is_directory"`
	Files       map[string]FileSignature `json:"files"`
}

// EntrySignature is the on-disk identity of an Entry: exactly one of File or
// Dir is set, depending on whether the Entry is a File or a Directory.
type EntrySignature struct {
	File *FileSignature `json:"file,omitempty"`
	Dir  *DirSignature  `json:"dir,omitempty"`
}
