// Package evalcmd implements the fixeval command: it computes interval
// invariants for a TOML-described control-flow graph and reports them in
// weak topological order.
package evalcmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/benjaminjellison/ikos/config"
	"github.com/benjaminjellison/ikos/fixpoint"
	"github.com/benjaminjellison/ikos/interval"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Run executes the command with the given arguments and returns its exit
// code.
func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fixeval", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "trace fixpoint iterations")
	confPath := fs.String("conf", "", "options file (default: look up fixpoint.conf)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: fixeval [flags] program.toml")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	prog, err := LoadProgram(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	var conf config.Config
	if *confPath != "" {
		conf, err = config.ParseFile(*confPath)
	} else {
		var wd string
		wd, err = os.Getwd()
		if err == nil {
			conf, err = config.Load(wd)
		}
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	log := logrus.New()
	log.SetOutput(stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if f, ok := stderr.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		log.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}

	a := newAnalyzer(prog, conf, log)
	it := fixpoint.New[string, interval.Interval](prog.Graph(), a)
	log.WithFields(logrus.Fields{
		"wto":  it.WTO().String(),
		"init": prog.Init().String(),
	}).Debug("run")
	it.Run(prog.Init())

	for _, line := range a.lines {
		fmt.Fprintln(stdout, line)
	}
	return 0
}
