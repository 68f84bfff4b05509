package main

import "trustscan/internal/cli"

func main() {
	cli.Execute()
}
