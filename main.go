package main

import "github.com/jnalanko/bifrost/cmd"

func main() {
	cmd.Execute()
}
