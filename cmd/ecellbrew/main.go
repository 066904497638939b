package main

import (
	"os"

	"github.com/ecell/ecellbrew/cmd/ecellbrew/internal"
)

func main() {
	os.Exit(internal.Execute())
}
