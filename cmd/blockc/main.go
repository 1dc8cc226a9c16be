// Command blockc builds and uploads Arduino sketches from block scripts.
package main

import "github.com/chazu/blockstudio/internal/cli"

func main() {
	cli.Execute()
}
