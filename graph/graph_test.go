package graph_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gocons/gocons/graph"
)

func TestExecutionInterning(t *testing.T) {
	exec := graph.NewExecution()
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")

	f1, err := exec.File(p)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := exec.File(p)
	if err != nil {
		t.Fatal(err)
	}
	if f1 != f2 {
		t.Fatalf("File(%q) returned distinct instances on re-intern", p)
	}

	if _, err := exec.Dir(p); err == nil {
		t.Fatalf("Dir(%q) on a path already interned as File: want error, got nil", p)
	}
}

func TestExecutionEntriesAbsolute(t *testing.T) {
	exec := graph.NewExecution()
	dir := t.TempDir()
	if _, err := exec.File(filepath.Join(dir, "a.txt")); err != nil {
		t.Fatal(err)
	}
	if _, err := exec.Dir(filepath.Join(dir, "sub")); err != nil {
		t.Fatal(err)
	}
	for _, e := range exec.Entries() {
		if !filepath.IsAbs(e.Path()) {
			t.Errorf("entry path %q is not absolute", e.Path())
		}
	}
}

func TestFileSignatureTracksModTime(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("A"), 0o644); err != nil {
		t.Fatal(err)
	}
	exec := graph.NewExecution()
	f, err := exec.File(p)
	if err != nil {
		t.Fatal(err)
	}
	sig1, err := f.Signature()
	if err != nil {
		t.Fatal(err)
	}
	if sig1.File == nil || !sig1.File.IsRegular {
		t.Fatalf("want regular-file signature, got %+v", sig1)
	}

	sig2, err := f.Signature()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sig1, sig2); diff != "" {
		t.Fatalf("signature changed with no write: (-first +second)\n%s", diff)
	}

	mtime := time.Unix(1, 0)
	if err := os.Chtimes(p, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	sig3, err := f.Signature()
	if err != nil {
		t.Fatal(err)
	}
	if sig3.File == nil || sig3.File.ModTimeUnixNano != mtime.UnixNano() {
		t.Fatalf("signature after Chtimes = %+v, want mtime %d", sig3, mtime.UnixNano())
	}
}

func TestDirectorySignatureWalksChildren(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "a.txt"), []byte("A"), 0o644); err != nil {
		t.Fatal(err)
	}
	exec := graph.NewExecution()
	d, err := exec.Dir(dir)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := d.Signature()
	if err != nil {
		t.Fatal(err)
	}
	if sig.Dir == nil {
		t.Fatalf("want directory signature, got %+v", sig)
	}
	if _, ok := sig.Dir.Files[filepath.Join("sub", "a.txt")]; !ok {
		t.Fatalf("signature missing sub/a.txt: %+v", sig.Dir.Files)
	}
}

type fakeBuilder struct {
	graph.Base
}

func (b *fakeBuilder) Execute(ctx context.Context) error { return nil }

func TestRegisterBuilderRejectsDoubleBind(t *testing.T) {
	exec := graph.NewExecution()
	dir := t.TempDir()
	f, err := exec.File(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	b1 := &fakeBuilder{Base: graph.NewBase("b1", f)}
	if err := exec.RegisterBuilder(b1); err != nil {
		t.Fatal(err)
	}
	b2 := &fakeBuilder{Base: graph.NewBase("b2", f)}
	if err := exec.RegisterBuilder(b2); err == nil {
		t.Fatalf("want error binding a second builder to the same output")
	}
}

func TestRegisterBuilderRejectsDirWithSiblings(t *testing.T) {
	exec := graph.NewExecution()
	dir := t.TempDir()
	d, err := exec.Dir(filepath.Join(dir, "outdir"))
	if err != nil {
		t.Fatal(err)
	}
	f, err := exec.File(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	b := &fakeBuilder{Base: graph.NewBase("b", d, f)}
	if err := exec.RegisterBuilder(b); err == nil {
		t.Fatalf("want error registering a Directory output alongside a sibling")
	}
}

func TestAliasResolution(t *testing.T) {
	exec := graph.NewExecution()
	dir := t.TempDir()
	f, err := exec.File(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	exec.Alias("all", f)
	nodes, ok := exec.ResolveAlias("all")
	if !ok {
		t.Fatalf("alias %q not found", "all")
	}
	if len(nodes) != 1 || nodes[0] != f {
		t.Fatalf("unexpected alias resolution: %v", nodes)
	}
	if _, ok := exec.ResolveAlias("missing"); ok {
		t.Fatalf("unknown alias resolved")
	}
}

func TestEnvironmentGetBuildPath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	build := filepath.Join(dir, "build")
	if err := os.MkdirAll(filepath.Join(src, "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	env, err := graph.NewEnvironment(graph.NewExecution(), src, build)
	if err != nil {
		t.Fatal(err)
	}

	got, err := env.GetBuildPath(filepath.Join(src, "pkg", "a.txt"), "stage1", ".up")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(build, "stage1", "pkg", "a.up")
	if got != want {
		t.Fatalf("GetBuildPath from src: got %q, want %q", got, want)
	}

	// A path already in the build tree is re-rooted under the new subdir,
	// dropping its existing build-subdir component.
	got2, err := env.GetBuildPath(filepath.Join(build, "stage1", "pkg", "a.up"), "stage2", "")
	if err != nil {
		t.Fatal(err)
	}
	want2 := filepath.Join(build, "stage2", "pkg", "a.up")
	if got2 != want2 {
		t.Fatalf("GetBuildPath from build tree: got %q, want %q", got2, want2)
	}
}

func TestEnvironmentGetBuildPathOutsideRoots(t *testing.T) {
	dir := t.TempDir()
	env, err := graph.NewEnvironment(graph.NewExecution(), filepath.Join(dir, "src"), filepath.Join(dir, "build"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.GetBuildPath("/etc/hosts", "stage1", ""); err == nil {
		t.Fatalf("want ConfigurationError for a path outside both roots")
	} else if _, ok := err.(*graph.ConfigurationError); !ok {
		t.Fatalf("got %T, want *graph.ConfigurationError", err)
	}
}

func TestEnvironmentDependsFilesResolvesBuilderOutputs(t *testing.T) {
	dir := t.TempDir()
	env, err := graph.NewEnvironment(graph.NewExecution(), dir, dir)
	if err != nil {
		t.Fatal(err)
	}
	out, err := env.File(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	producer := &fakeBuilder{Base: graph.NewBase("producer", out)}

	consumer := &fakeBuilder{Base: graph.NewBase("consumer")}
	nodes, err := env.DependsFiles(consumer, producer)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0] != out {
		t.Fatalf("DependsFiles(producer) = %v, want [%v]", nodes, out)
	}
}
