// Command bridgegen writes reflective D declarations for a .NET module.
package main

import "martianoff/dbridge/internal/commands"

func main() {
	commands.Execute(commands.NewBridgegenCommand())
}
