package main

import "github.com/forPelevin/ycsp/internal/cli"

func main() {
	cli.Main()
}
