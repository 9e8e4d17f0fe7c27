// main.go - Application entry point
package main

import "maptile-reader/cmd"

func main() {
	cmd.Execute()
}
