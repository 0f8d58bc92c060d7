package main

import (
	"orpheus/cmd"
)

func main() {
	cmd.Execute()
}
