// Command trampolinegen writes a D wrapper and its companion CLR trampoline
// module for a .NET module.
package main

import "martianoff/dbridge/internal/commands"

func main() {
	commands.Execute(commands.NewTrampolinegenCommand())
}
