package main

import "github.com/Tiliavir/timeledger/cmd"

func main() {
	cmd.Execute()
}
