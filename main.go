package main

import (
	"os"

	"hexlens/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
