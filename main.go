package main

import "github.com/mselser95/auction-engine/cmd"

func main() {
	cmd.Execute()
}
