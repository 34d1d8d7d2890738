package main

import "github.com/forPelevin/quicktrim/internal/cli"

func main() {
	cli.Main()
}
