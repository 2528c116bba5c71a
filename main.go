package main

import "llmunify/cmd"

func main() {
	cmd.Execute()
}
