// Titanoboa orchestrates module files by naming convention.
//
// Usage:
//
//	titanoboa [--dir PATH] [--json] <command>
//
// Commands:
//
//	init   Scaffold .titanoboa, generate orchestrators, run all modules
//	run    Rebuild the registry and execute every orchestrator
//	clean  Remove generated artifacts and saved state
//	list   Show discovered modules without generating or running
package main

import (
	"fmt"
	"os"

	"github.com/CyberForgeX/titanoboa/internal/cli"
)

// version is set through ldflags at build time.
var version = "dev"

func main() {
	if err := cli.NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
