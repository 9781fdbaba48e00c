package main

import "github.com/alde/trbk/cmd"

func main() {
	cmd.Execute()
}
