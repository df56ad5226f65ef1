package main

import "github.com/opsdeck/opsdeck-go/cmd"

func main() {
	cmd.Execute()
}
