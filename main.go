package main

import "github.com/nextlevelbuilder/vibetorch/cmd"

func main() {
	cmd.Execute()
}
