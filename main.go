package main

import (
	"os"

	"site-cms/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
