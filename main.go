package main

import "github.com/user/malscan-report/cmd"

func main() {
	cmd.Execute()
}
