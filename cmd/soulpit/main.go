package main

import "github.com/mcoot/soulpit/internal/cli"

func main() {
	cli.Execute()
}
