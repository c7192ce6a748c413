package main

import "github.com/matthieukhl/orderpulse/internal/cmd"

func main() {
	cmd.Execute()
}
