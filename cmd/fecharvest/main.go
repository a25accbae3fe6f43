package main

import "fecharvest/internal/cli"

func main() {
	cli.Execute()
}
