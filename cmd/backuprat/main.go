// Package main is the entry point for backuprat.
package main

import (
	"os"
)

func main() {
	os.Exit(Execute())
}
