package main

import "github.com/mj1618/onboard-cli/cmd"

func main() {
	cmd.Execute()
}
