package main

import (
	"github.com/AzielCF/aegisx/cmd"
)

func main() {
	cmd.Execute()
}
