package main

import "rbxport/src/cmd"

func main() {
	cmd.Execute()
}
