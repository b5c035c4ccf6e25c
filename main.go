package main

import "github.com/theopenlane/urlscout/cmd"

func main() {
	cmd.Execute()
}
