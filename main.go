package main

import "github.com/alimasry/go-collab-cms/cmd"

func main() {
	cmd.Execute()
}
