package main

import "github.com/fleetsight/fleetsight/pkg/cli"

func main() {
	cli.Execute()
}
