package main

import "github.com/truemediaorg/crosspublisher/cmd"

func main() {
	cmd.Execute()
}
