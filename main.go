// Copyright © 2024 The runcoliru authors

package main

import "github.com/luthersystems/runcoliru/cmd"

func main() {
	cmd.Execute()
}
