package main

import "github.com/ynkmodelo/backup/cmd"

func main() {
	cmd.Execute()
}
