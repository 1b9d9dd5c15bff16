// Command fieldwise runs the maintenance report assistant and its tools.
package main

import (
	"context"
	"os"
)

func main() {
	if err := NewApp().CreateRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
