package main

import "github.com/polyroute/polyroute/internal/cli"

func main() {
	cli.Execute()
}
