// bullhorn delivers messages into running AI agent sessions.
package main

import (
	"os"

	"github.com/steveyegge/bullhorn/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
