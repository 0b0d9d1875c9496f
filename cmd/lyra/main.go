package main

import "github.com/lyra-lang/lyra/pkg/cli"

func main() {
	cli.Run()
}
