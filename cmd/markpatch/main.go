package main

import (
	"os"

	"github.com/sokinpui/markpatch/cli"
)

func main() {
	os.Exit(cli.Execute())
}
