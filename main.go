package main

import "github.com/drgolem/opdtools/cmd"

func main() {
	cmd.Execute()
}
