package main

import "github.com/urbanmobility/umob/cmd"

func main() {
	cmd.Execute()
}
