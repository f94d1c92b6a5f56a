package main

import "github.com/forPelevin/snip/internal/cli"

func main() {
	cli.Main()
}
