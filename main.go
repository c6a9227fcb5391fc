package main

import "github.com/user/rangeclip/cmd"

func main() {
	cmd.Execute()
}
