package testutil

import (
	"testing"

	"github.com/sympath/sympath/analysis/cfg"
	"github.com/sympath/sympath/analysis/engine"
	"github.com/sympath/sympath/pkgutil"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// BuilderMode is the SSA builder configuration used throughout: sanity
// checked functions, instantiated generics, and debug information so
// display names can be recovered from debug references.
const BuilderMode = ssa.SanityCheckFunctions | ssa.InstantiateGenerics | ssa.GlobalDebug

// LoadResult contains the relevant information obtained after loading a
// Go program for analysis: the focused package and its SSA form.
type LoadResult struct {
	// MainPkg is the package focused by the analysis.
	MainPkg *packages.Package
	// Prog is the SSA representation of the entire program.
	Prog *ssa.Program
	// Pkg is the SSA package of MainPkg.
	Pkg *ssa.Package
}

// LoadSource loads a program given as an inline source string.
func LoadSource(t *testing.T, source string) LoadResult {
	pkgs, err := pkgutil.LoadPackagesFromSource(source)
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 1 {
		t.Fatalf("expected 1 loaded package, got %d", len(pkgs))
	}

	return buildSSA(t, pkgs)
}

func buildSSA(t *testing.T, pkgs []*packages.Package) (res LoadResult) {
	res.MainPkg = pkgs[0]

	var ssaPkgs []*ssa.Package
	res.Prog, ssaPkgs = ssautil.AllPackages(pkgs, BuilderMode)
	res.Prog.Build()

	if len(ssaPkgs) == 0 || ssaPkgs[0] == nil {
		t.Fatal("SSA construction produced no package")
	}
	res.Pkg = ssaPkgs[0]
	return
}

// Function locates the unique function or method with the given name in
// the loaded package.
func (res LoadResult) Function(t *testing.T, name string) *ssa.Function {
	var found *ssa.Function
	for fn := range ssautil.AllFunctions(res.Prog) {
		if fn.Name() != name || fn.Pkg != res.Pkg || fn.Parent() != nil {
			continue
		}
		if found != nil {
			t.Fatalf("multiple functions named %s", name)
		}
		found = fn
	}
	if found == nil {
		t.Fatalf("no function named %s", name)
	}
	return found
}

// Analyze traverses the exploded graph of the named function with the
// given checks and returns the result.
func (res LoadResult) Analyze(t *testing.T, name string, checks ...engine.Check) *engine.Result {
	fn := res.Function(t, name)
	result, err := engine.New(cfg.New(fn), checks...).Run()
	if err != nil {
		t.Fatal(err)
	}
	return result
}
