// Package main is the skillsync CLI entry point.
package main

import (
	"os"

	"github.com/skillsync-dev/skillsync/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
