// Command gocons is a reference driver for the gocons build core. It
// wires up the demo recipe (see package demo) and exposes the CLI
// surface the core expects from its external collaborator: target
// arguments, -B/-d/--tree flags, profiling, and an optional metrics
// listener.
package main

import (
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	runtimepprof "runtime/pprof"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/gocons/gocons"
	"github.com/gocons/gocons/internal/trace"
	"github.com/gocons/gocons/recipes/demo"
	"github.com/gocons/gocons/scheduler"
)

var (
	srcRoot     string
	buildRoot   string
	metadataDB  string
	alwaysBuild bool
	dryRun      bool
	treeFlag    string
	vars        []string
	workers     int
	debug       bool
	cpuprofile  string
	memprofile  string
	tracefile   string
	httpListen  string
)

func main() {
	root := &cobra.Command{
		Use:   "gocons [targets...]",
		Short: "a dependency-tracking build engine core, driving its demo recipe",
		RunE:  run,
	}

	flags := root.Flags()
	flags.StringVar(&srcRoot, "srcroot", ".", "source tree root")
	flags.StringVar(&buildRoot, "buildroot", "build", "build tree root")
	flags.StringVar(&metadataDB, "metadata", ".gocons.sqlite3", "path to the metadata store")
	flags.BoolVarP(&alwaysBuild, "always-build", "B", false, "force every buildable node to be rebuilt")
	flags.BoolVarP(&dryRun, "dry-run", "d", false, "print intended actions without building")
	flags.StringVar(&treeFlag, "tree", "", "print the dependency tree (\"tree\" or \"all\")")
	flags.StringArrayVarP(&vars, "var", "D", nil, "override a recipe variable, key=value (repeatable)")
	flags.IntVarP(&workers, "jobs", "j", runtime.NumCPU(), "parallel worker count; 1 for serial execution")
	flags.BoolVar(&debug, "debug", false, "format error messages with additional detail")
	flags.StringVar(&cpuprofile, "cpuprofile", "", "path to store a CPU profile at")
	flags.StringVar(&memprofile, "memprofile", "", "path to store a memory profile at")
	flags.StringVar(&tracefile, "tracefile", "", "path to store a chrome trace event file at (load in chrome://tracing)")
	flags.StringVar(&httpListen, "listen", "", "host:port to expose /metrics and /debug/pprof on")
	root.Flags().Lookup("tree").NoOptDefVal = "tree"

	if err := root.Execute(); err != nil {
		if debug {
			fmt.Fprintf(os.Stderr, "%+v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		os.Exit(1)
	}
	if err := cons.RunAtExit(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return xerrors.Errorf("cpuprofile: %w", err)
		}
		runtimepprof.StartCPUProfile(f)
		defer runtimepprof.StopCPUProfile()
	}

	if tracefile != "" {
		f, err := os.Create(tracefile)
		if err != nil {
			return xerrors.Errorf("tracefile: %w", err)
		}
		trace.Sink(f)
	}

	if httpListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(scheduler.Registry, promhttp.HandlerOpts{}))
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		go http.ListenAndServe(httpListen, mux)
	}

	overrides := map[string]string{}
	for _, kv := range vars {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return xerrors.Errorf("-D %s: want key=value", kv)
		}
		overrides[k] = v
	}

	targets := args
	if len(targets) == 0 {
		targets = []string{"all"}
	}

	var treeOut *os.File
	treeAll := false
	if treeFlag != "" {
		treeOut = os.Stdout
		treeAll = treeFlag == "all"
	}

	ctx, canc := cons.InterruptibleContext()
	defer canc()

	cfg := cons.Config{
		SrcRoot:     srcRoot,
		BuildRoot:   buildRoot,
		MetadataPath: metadataDB,
		Targets:     targets,
		Vars:        overrides,
		Workers:     workers,
		DryRun:      dryRun,
		AlwaysBuild: alwaysBuild,
		TreeAll:     treeAll,
		TreeOnly:    treeFlag != "" && dryRun,
		Log:         nil,
	}
	if treeOut != nil {
		cfg.Tree = treeOut
	}

	result, err := cons.Main(ctx, demo.Recipe, cfg)
	if err != nil {
		if memprofile != "" {
			writeMemProfile(memprofile)
		}
		return xerrors.Errorf("build: %w", err)
	}
	if memprofile != "" {
		writeMemProfile(memprofile)
	}
	if result.Built != nil {
		for _, b := range result.Built.Invoked {
			fmt.Fprintf(os.Stdout, "built %s\n", b)
		}
	}
	return nil
}

func writeMemProfile(path string) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "memprofile: %v\n", err)
		return
	}
	defer f.Close()
	runtime.GC()
	if err := runtimepprof.WriteHeapProfile(f); err != nil {
		fmt.Fprintf(os.Stderr, "memprofile: %v\n", err)
	}
}
