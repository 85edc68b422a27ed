package main

import (
	"github.com/rustyeddy/optionwatch/internal/cli"
)

func main() {
	cli.Execute()
}
