package main

import "github.com/Praharsha2005/Disease-Classification-using-AI/internal/cli"

func main() {
	cli.Execute()
}
