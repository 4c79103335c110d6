package utils

import (
	"flag"
	"fmt"
	"log"
	"strings"
)

type options struct {
	budget       uint
	function     string
	gopath       string
	modulePath   string
	configFile   string
	outputFormat string
	noColorize   bool
	verbose      bool
	visualize    bool
	includeTests bool
}

var opts = &options{}

type optInterface struct{}

// Opts exposes read-only access to the parsed command line options.
func Opts() optInterface {
	return optInterface{}
}

func (optInterface) Budget() int {
	return int(opts.budget)
}
func (optInterface) Function() string {
	return opts.function
}
func (optInterface) GoPath() string {
	return opts.gopath
}
func (optInterface) ModulePath() string {
	return opts.modulePath
}
func (optInterface) ConfigFile() string {
	return opts.configFile
}
func (optInterface) OutputFormat() string {
	return opts.outputFormat
}
func (optInterface) NoColorize() bool {
	return opts.noColorize
}
func (optInterface) Verbose() bool {
	return opts.verbose
}
func (optInterface) Visualize() bool {
	return opts.visualize
}
func (optInterface) IncludeTests() bool {
	return opts.includeTests
}

// AnalyzeAllFuncs denotes whether every function in the target package
// should be analyzed, rather than one named function.
func (optInterface) AnalyzeAllFuncs() bool {
	return opts.function == "."
}

// Setters let a configuration file override flag defaults before the
// options are consulted.
func (optInterface) SetBudget(budget uint) {
	opts.budget = budget
}
func (optInterface) SetFunction(function string) {
	opts.function = function
}
func (optInterface) SetIncludeTests() {
	opts.includeTests = true
}
func (optInterface) SetNoColorize() {
	opts.noColorize = true
}

// OnVerbose runs the given thunk only when verbose output is enabled.
func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}

// CanColorize strips colorization from a pretty printer when the
// -no-colorize flag is set.
func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

func init() {
	flag.UintVar(&(opts.budget), "budget", 25000, "upper bound on dequeued exploded graph steps per analyzed function; "+
		"exceeding it yields a partial result")
	flag.StringVar(&(opts.function), "fun", ".", "target a specific function w. r. t. analysis.\n"+
		"- A simple name matches any function or method with that name in the target package.\n"+
		"- Use '.' to analyze all functions in the target package.\n")
	flag.StringVar(&(opts.gopath), "gopath", "", "specify GOPATH to be used for packages.Load")
	flag.StringVar(&(opts.modulePath), "modulepath", "", `specify a path to a directory containing a Go module.
- If provided this will make our code loading tools (that piggyback on Go's tools) run
in "module-aware" mode (GO111MODULE=on).`)
	flag.StringVar(&(opts.configFile), "config", "", "path to a YAML analysis configuration file")
	flag.StringVar(&(opts.outputFormat), "format", "svg", "output file format for visualization [svg | png | jpg | ...]")
	flag.BoolVar(&(opts.noColorize), "no-colorize", false, "disable pretty printer colorization")
	flag.BoolVar(&(opts.verbose), "verbose", false, "enable verbose output")
	flag.BoolVar(&(opts.visualize), "visualize", false, "render the exploded graph of each analyzed function")
	flag.BoolVar(&(opts.includeTests), "include-tests", false, "include package test files in the analysis")

	// Set up logging
	log.SetFlags(log.Ltime | log.Lshortfile)
}

// ParseArgs parses and validates command line flags.
func ParseArgs() {
	// Calling flag.Parse in init messes up unit tests.
	flag.Parse()

	if opts.function == "" {
		log.Fatal("Value of -fun may not be empty")
	}
}
