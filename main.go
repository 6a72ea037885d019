package main

import (
	"os"

	"github.com/evgrid/chargeq/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
