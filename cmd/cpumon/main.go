package main

import "github.com/idwby/cpumon/internal/cli"

func main() {
	cli.Execute()
}
