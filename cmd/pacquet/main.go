package main

import (
	"os"

	"github.com/pacquet/pacquet/internal/cli"
)

func main() {
	os.Exit(cli.RunWithArgs(os.Args[1:]))
}
