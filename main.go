package main

import "github.com/wkmp/ap/cmd/wkmpap"

func main() {
	cmd.Execute()
}
