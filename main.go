/*
dvdcc - A utility for backing up Nintendo GameCube and Wii optical discs
using Hitachi/LG DVD drives.

Copyright © 2025 Josh Wood
*/
package main

import (
	"fmt"
	"os"

	"github.com/joshuarwood/dvdcc/cmd"
)

// Version information (injected at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Check for version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("dvdcc %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	cmd.Execute()
}
