// The main package for the bosswatch executable.
package main

import (
	"github.com/adelaroche/bosswatch/cmd"
)

func main() {
	cmd.Execute()
}
