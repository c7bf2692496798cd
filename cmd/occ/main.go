package main

import (
	"os"

	"overcast/src/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
