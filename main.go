package main

import (
	"flag"
	"fmt"
	"go/types"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sympath/sympath/analysis/cfg"
	"github.com/sympath/sympath/analysis/checks/dispose"
	"github.com/sympath/sympath/analysis/config"
	"github.com/sympath/sympath/analysis/engine"
	"github.com/sympath/sympath/pkgutil"
	"github.com/sympath/sympath/utils"
	"github.com/sympath/sympath/utils/dot"

	"github.com/fatih/color"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

var opts = utils.Opts()

// builderMode enables sanity checks and debug information. GlobalDebug
// retains DebugRef instructions, which the analysis mines for source
// level names of SSA registers.
const builderMode = ssa.SanityCheckFunctions | ssa.InstantiateGenerics | ssa.GlobalDebug

// registeredChecks lists every available check. The -config file can
// narrow the selection by name.
var registeredChecks = []engine.Check{
	dispose.New(),
}

func main() {
	utils.ParseArgs()

	path := "."
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	checks := registeredChecks

	// Configuration file entries override flag defaults, written back
	// through the options so every consumer sees the same values.
	if opts.ConfigFile() != "" {
		cfgFile, err := config.Load(opts.ConfigFile())
		if err != nil {
			log.Fatalln(err)
		}
		if cfgFile.Budget > 0 {
			opts.SetBudget(cfgFile.Budget)
		}
		if cfgFile.Function != "" {
			opts.SetFunction(cfgFile.Function)
		}
		if cfgFile.IncludeTests {
			opts.SetIncludeTests()
		}
		if cfgFile.NoColorize {
			opts.SetNoColorize()
		}
		checks = nil
		for _, c := range registeredChecks {
			if cfgFile.EnabledCheck(c.Name()) {
				checks = append(checks, c)
			}
		}
		if len(checks) == 0 {
			log.Fatalln("Configuration enables no known check")
		}
	}

	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{
		GoPath:       opts.GoPath(),
		ModulePath:   opts.ModulePath(),
		IncludeTests: opts.IncludeTests(),
	}, path)
	if err != nil {
		log.Println("Failed pkgutil.LoadPackages")
		log.Fatalln(err)
	}

	prog, ssapkgs := ssautil.AllPackages(pkgs, builderMode)
	prog.Build()

	fns := targetFunctions(ssapkgs, opts.Function())
	if len(fns) == 0 {
		log.Fatalln("No function matches", opts.Function())
	}
	log.Println("Analyzing", len(fns), "functions")

	var (
		mu       sync.Mutex
		findings []engine.Finding
		partials int
		failed   bool
	)

	// Each function gets its own engine, checks, and states. Sharing
	// happens only at this aggregation point.
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup
	for _, fn := range fns {
		wg.Add(1)
		sem <- struct{}{}
		go func(fn *ssa.Function) {
			defer wg.Done()
			defer func() { <-sem }()

			eng := engine.New(cfg.New(fn), checks...).WithBudget(opts.Budget())
			if opts.Visualize() {
				eng = eng.WithGraphRecording()
			}

			res, err := eng.Run()
			if err != nil {
				mu.Lock()
				log.Printf("%s: %v", fn, err)
				failed = true
				mu.Unlock()
				return
			}

			mu.Lock()
			findings = append(findings, res.Findings...)
			if res.Partial {
				partials++
				opts.OnVerbose(func() {
					log.Println(utils.FaintColor(fmt.Sprintf("%s: budget exhausted after %d steps", fn, res.Steps)))
				})
			}
			mu.Unlock()

			if opts.Visualize() && eng.Graph().Size() > 0 {
				renderGraph(fn, eng.Graph())
			}
		}(fn)
	}
	wg.Wait()

	sort.Slice(findings, func(i, j int) bool {
		pi, pj := findings[i].Pos, findings[j].Pos
		if pi.Filename != pj.Filename {
			return pi.Filename < pj.Filename
		}
		if pi.Line != pj.Line {
			return pi.Line < pj.Line
		}
		return pi.Column < pj.Column
	})

	for _, f := range findings {
		fmt.Println(f)
	}

	if partials > 0 {
		log.Println(color.YellowString("%d functions yielded partial results", partials))
	}
	if len(findings) > 0 || failed {
		os.Exit(1)
	}
	log.Println(color.GreenString("No issues detected"))
}

// targetFunctions collects the source functions of the loaded packages
// matched by the -fun filter, in deterministic order. Synthetic
// wrappers and bodiless declarations are skipped.
func targetFunctions(ssapkgs []*ssa.Package, filter string) []*ssa.Function {
	all := opts.AnalyzeAllFuncs()

	local := make(map[*ssa.Package]bool, len(ssapkgs))
	for _, pkg := range ssapkgs {
		if pkg != nil {
			local[pkg] = true
		}
	}

	var fns []*ssa.Function
	for _, pkg := range ssapkgs {
		if pkg == nil {
			continue
		}
		for _, member := range pkg.Members {
			fn, ok := member.(*ssa.Function)
			if !ok {
				continue
			}
			for _, f := range append([]*ssa.Function{fn}, allAnons(fn)...) {
				if f.Blocks == nil || !local[f.Pkg] {
					continue
				}
				if !all && !strings.HasSuffix(f.Name(), filter) &&
					!strings.HasSuffix(f.String(), filter) {
					continue
				}
				fns = append(fns, f)
			}
		}
		// Methods of package level types.
		for _, member := range pkg.Members {
			typ, ok := member.(*ssa.Type)
			if !ok {
				continue
			}
			prog := pkg.Prog
			for _, sel := range typeMethods(prog, typ) {
				if sel.Blocks == nil {
					continue
				}
				if !all && !strings.HasSuffix(sel.Name(), filter) &&
					!strings.HasSuffix(sel.String(), filter) {
					continue
				}
				fns = append(fns, sel)
			}
		}
	}

	sort.Slice(fns, func(i, j int) bool {
		return fns[i].String() < fns[j].String()
	})
	return fns
}

func allAnons(fn *ssa.Function) (res []*ssa.Function) {
	for _, anon := range fn.AnonFuncs {
		res = append(res, anon)
		res = append(res, allAnons(anon)...)
	}
	return res
}

func typeMethods(prog *ssa.Program, typ *ssa.Type) (res []*ssa.Function) {
	seen := make(map[*ssa.Function]bool)
	for _, T := range []types.Type{typ.Type(), types.NewPointer(typ.Type())} {
		mset := prog.MethodSets.MethodSet(T)
		for i := 0; i < mset.Len(); i++ {
			fn := prog.MethodValue(mset.At(i))
			if fn == nil || fn.Synthetic != "" || seen[fn] {
				continue
			}
			seen[fn] = true
			res = append(res, fn)
		}
	}
	return res
}

// renderGraph writes the recorded exploded graph of a function to an
// image file next to the working directory.
func renderGraph(fn *ssa.Function, g *engine.Graph) {
	base := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '(', ')', '*', ' ':
			return '_'
		}
		return r
	}, fn.String())

	if path, err := dot.DotToImage(base, opts.OutputFormat(), g.Dot()); err != nil {
		log.Printf("%s: rendering failed: %v", fn, err)
	} else {
		log.Println("Exploded graph for", utils.NameColor(fn.String()), "written to", utils.PosColor(path))
	}
}
