package main

import "github.com/josephlewis42/mdcmdrun/cmd"

func main() {
	cmd.Execute()
}
