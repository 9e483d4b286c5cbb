package main

import "github.com/themobileprof/ayu-be/internal/commands"

func main() {
	commands.Execute()
}
