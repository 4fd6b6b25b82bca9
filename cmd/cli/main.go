package main

import (
	"github.com/graph-import/cmd/cli/cmd"
)

func main() {
	cmd.Execute()
}
