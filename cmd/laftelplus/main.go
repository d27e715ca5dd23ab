package main

import (
	"os"

	"github.com/DOCHIS/laftel-plus/cmd/laftelplus/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr, nil))
}
