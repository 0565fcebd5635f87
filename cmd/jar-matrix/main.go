package main

import "github.com/gvsds/jar-matrix/cmd/jar-matrix/cmd"

func main() {
	cmd.Execute()
}
