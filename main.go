package main

import "InferenceMeter/pkg/cmd"

func main() {
	cmd.Execute()
}
