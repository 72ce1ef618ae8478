package main

import "github.com/celine/regorus-builder/internal/cli"

func main() {
	cli.Execute()
}
