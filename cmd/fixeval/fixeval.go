// fixeval computes interval invariants for a control-flow graph described
// in a TOML file.
package main

import (
	"os"

	"github.com/benjaminjellison/ikos/evalcmd"
)

func main() {
	os.Exit(evalcmd.Run(os.Args[1:]))
}
