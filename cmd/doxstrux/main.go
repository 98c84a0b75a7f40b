package main

import "github.com/poutila/doxstrux-sub002/internal/cli"

func main() {
	cli.Execute()
}
