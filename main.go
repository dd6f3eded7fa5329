package main

import "github.com/avitale/rocketbridge/cmd"

func main() {
	cmd.Execute()
}
