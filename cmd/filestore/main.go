package main

import "filestore/cmd/filestore/cmd"

func main() {
	cmd.Execute()
}
