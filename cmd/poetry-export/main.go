package main

import "poetry-export/internal/cli"

func main() {
	cli.Execute()
}
