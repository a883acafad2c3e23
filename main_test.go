package cons_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cons "github.com/gocons/gocons"
	"github.com/gocons/gocons/graph"
	"github.com/gocons/gocons/recipes/demo"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newConfig(t *testing.T, targets ...string) (cons.Config, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	build := filepath.Join(dir, "build")
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	writeFile(t, filepath.Join(src, "b.txt"), "b")
	return cons.Config{
		SrcRoot:      src,
		BuildRoot:    build,
		MetadataPath: filepath.Join(dir, "meta.sqlite3"),
		Targets:      targets,
		Workers:      1,
	}, build
}

func TestMainBuildsDemoRecipe(t *testing.T) {
	cfg, build := newConfig(t, "all")
	res, err := cons.Main(context.Background(), demo.Recipe, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Built.Invoked) != 3 {
		t.Fatalf("cold demo build should invoke 3 builders, invoked %d", len(res.Built.Invoked))
	}
	all := filepath.Join(build, "a-all.txt")
	got, err := os.ReadFile(all)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "AB" {
		t.Fatalf("build/a-all.txt = %q, want %q", got, "AB")
	}
}

func TestMainSecondRunIsNoOp(t *testing.T) {
	cfg, _ := newConfig(t, "all")
	ctx := context.Background()
	if _, err := cons.Main(ctx, demo.Recipe, cfg); err != nil {
		t.Fatal(err)
	}
	res, err := cons.Main(ctx, demo.Recipe, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Built.Invoked) != 0 {
		t.Fatalf("re-running Main against an up-to-date tree should invoke nothing, invoked %d", len(res.Built.Invoked))
	}
}

func TestMainUnknownTargetIsDependencyError(t *testing.T) {
	cfg, _ := newConfig(t, "does-not-exist")
	_, err := cons.Main(context.Background(), demo.Recipe, cfg)
	if err == nil {
		t.Fatalf("want an error for an unknown target")
	}
	if _, ok := err.(*graph.DependencyError); !ok {
		t.Fatalf("got %T, want *graph.DependencyError", err)
	}
}

func TestMainTreeOnlyDoesNotBuild(t *testing.T) {
	cfg, build := newConfig(t, "all")
	var buf strings.Builder
	cfg.Tree = &buf
	cfg.TreeOnly = true
	res, err := cons.Main(context.Background(), demo.Recipe, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Built != nil {
		t.Fatalf("TreeOnly should not run the scheduler")
	}
	if buf.Len() == 0 {
		t.Fatalf("want tree output written to cfg.Tree")
	}
	if _, err := os.Stat(filepath.Join(build, "a-all.txt")); err == nil {
		t.Fatalf("TreeOnly must not produce build output")
	}
}
