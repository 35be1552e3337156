package main

import "soft404Go/cmd"

func main() {
	cmd.Execute()
}
