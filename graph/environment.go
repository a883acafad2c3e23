package graph

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Environment is the user-recipe convenience layer: it interns File/Dir
// nodes, derives build-tree paths from source paths, and resolves
// heterogeneous dependency sources (paths, Files, Directories, or other
// builders) into graph edges.
type Environment struct {
	exec      *Execution
	srcRoot   string
	buildRoot string
}

// NewEnvironment constructs an Environment over exec, deriving build-tree
// paths from srcRoot to buildRoot (see GetBuildPath).
func NewEnvironment(exec *Execution, srcRoot, buildRoot string) (*Environment, error) {
	src, err := filepath.Abs(srcRoot)
	if err != nil {
		return nil, err
	}
	build, err := filepath.Abs(buildRoot)
	if err != nil {
		return nil, err
	}
	return &Environment{exec: exec, srcRoot: src, buildRoot: build}, nil
}

// Execution returns the Environment's underlying Execution.
func (e *Environment) Execution() *Execution { return e.exec }

// File interns path (or returns f unchanged if already a *File). A relative
// path is resolved against srcRoot.
func (e *Environment) File(pathOrFile interface{}) (*File, error) {
	switch v := pathOrFile.(type) {
	case *File:
		return v, nil
	case string:
		return e.exec.File(e.resolveSrcPath(v))
	default:
		return nil, &ConfigurationError{Msg: fmt.Sprintf("File: unsupported argument type %T", pathOrFile)}
	}
}

// Dir interns path (or returns d unchanged if already a *Directory). A
// relative path is resolved against srcRoot.
func (e *Environment) Dir(pathOrDir interface{}) (*Directory, error) {
	switch v := pathOrDir.(type) {
	case *Directory:
		return v, nil
	case string:
		return e.exec.Dir(e.resolveSrcPath(v))
	default:
		return nil, &ConfigurationError{Msg: fmt.Sprintf("Dir: unsupported argument type %T", pathOrDir)}
	}
}

// resolveSrcPath joins a relative path with srcRoot; an absolute path is
// returned unchanged.
func (e *Environment) resolveSrcPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.srcRoot, path)
}

// GetBuildPath computes the destination path for src under the build tree.
//
// If src is already within the build root, its path relative to the first
// build-subdir path component is appended under buildSubdir; otherwise
// src's path relative to the source root is appended. If newExt is
// non-empty, the final extension is replaced.
func (e *Environment) GetBuildPath(src, buildSubdir, newExt string) (string, error) {
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", err
	}

	var rel string
	if abs == e.buildRoot || strings.HasPrefix(abs, e.buildRoot+string(filepath.Separator)) {
		relToRoot := strings.TrimPrefix(abs, e.buildRoot+string(filepath.Separator))
		parts := strings.SplitN(relToRoot, string(filepath.Separator), 2)
		if len(parts) == 2 {
			rel = parts[1] // drop the existing build-subdir component
		} else {
			rel = ""
		}
	} else if abs == e.srcRoot || strings.HasPrefix(abs, e.srcRoot+string(filepath.Separator)) {
		rel = strings.TrimPrefix(abs, e.srcRoot+string(filepath.Separator))
	} else {
		return "", &ConfigurationError{Msg: fmt.Sprintf("%s is outside both the source root %s and the build root %s", abs, e.srcRoot, e.buildRoot)}
	}

	out := filepath.Join(e.buildRoot, buildSubdir, rel)
	if newExt != "" {
		out = strings.TrimSuffix(out, filepath.Ext(out)) + "." + strings.TrimPrefix(newExt, ".")
	}
	return out, nil
}

// resolveSource turns a heterogeneous dependency source into the nodes it
// denotes: a string interns a File; a *File or *Directory is returned as
// itself; a *FileSet is returned as itself; a Builder returning a single
// Directory yields that Directory, otherwise yields every File among its
// outputs.
func (e *Environment) resolveSource(source interface{}) ([]Node, error) {
	switch v := source.(type) {
	case string:
		f, err := e.exec.File(e.resolveSrcPath(v))
		if err != nil {
			return nil, err
		}
		return []Node{f}, nil
	case *File:
		return []Node{v}, nil
	case *Directory:
		return []Node{v}, nil
	case *FileSet:
		return []Node{v}, nil
	case Builder:
		outputs := v.Outputs()
		if len(outputs) == 1 {
			if d, ok := outputs[0].(*Directory); ok {
				return []Node{d}, nil
			}
		}
		var files []Node
		for _, o := range outputs {
			if f, ok := o.(*File); ok {
				files = append(files, f)
			}
		}
		if len(files) == 0 {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("builder %s has no File or single Directory output to depend on", v)}
		}
		return files, nil
	default:
		return nil, &ConfigurationError{Msg: fmt.Sprintf("unsupported dependency source type %T", source)}
	}
}

// DependsFile resolves source to exactly one File and appends it to
// builder's Depends. source may be a path string, a *File, or a Builder
// with exactly one File output.
func (e *Environment) DependsFile(builder Builder, source interface{}) (*File, error) {
	nodes, err := e.resolveSource(source)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, &ConfigurationError{Msg: "DependsFile: source does not resolve to exactly one file"}
	}
	f, ok := nodes[0].(*File)
	if !ok {
		return nil, &ConfigurationError{Msg: "DependsFile: source does not resolve to a file"}
	}
	builder.AddDepend(f)
	return f, nil
}

// DependsFiles resolves each source (heterogeneous: paths, Files,
// Directories, FileSets, or Builders) and appends every resolved node to
// builder's Depends, returning them in resolution order.
func (e *Environment) DependsFiles(builder Builder, sources ...interface{}) ([]Node, error) {
	var result []Node
	for _, source := range sources {
		nodes, err := e.resolveSource(source)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			builder.AddDepend(n)
			result = append(result, n)
		}
	}
	return result, nil
}

// DependsDir resolves source to exactly one Directory and appends it to
// builder's Depends. Returns a ConfigurationError if source does not
// resolve to exactly one Directory.
func (e *Environment) DependsDir(builder Builder, source interface{}) (*Directory, error) {
	nodes, err := e.resolveSource(source)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, &ConfigurationError{Msg: "DependsDir: source does not resolve to exactly one directory"}
	}
	d, ok := nodes[0].(*Directory)
	if !ok {
		return nil, &ConfigurationError{Msg: "DependsDir: source does not resolve to a directory"}
	}
	builder.AddDepend(d)
	return d, nil
}
