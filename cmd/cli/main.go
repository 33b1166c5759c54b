package main

import "craftcloud/internal/cli/cmd"

func main() {
	cmd.Execute()
}
