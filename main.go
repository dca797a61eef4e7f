package main

import "github.com/g02flow/aosdb/cmd"

func main() {
	cmd.Execute()
}
