package main

import "github.com/CraigKelly/quantmc/cmd"

// TODO: checkpointing for chains (so we can freeze and continue a long run)

func main() {
	cmd.Execute()
}
