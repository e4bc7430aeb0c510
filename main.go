package main

import (
	"os"

	"github.com/candemir/geopact/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
