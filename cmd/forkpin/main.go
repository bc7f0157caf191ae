package main

import "github.com/ppiankov/forkpin/internal/cli"

func main() {
	cli.Execute()
}
