package main

import (
	"os"

	"github.com/rustyeddy/dwxconnect/cmd/dwxbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
