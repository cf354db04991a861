package main

import (
	"os"

	"go-content/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
