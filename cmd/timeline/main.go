package main

import "github.com/sir-timeline/timeline/cmd/timeline/commands"

func main() {
	commands.Execute()
}
