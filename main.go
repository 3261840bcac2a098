package main

import (
	"github.com/notargets/gosnes/cmd"
)

func main() {
	cmd.Execute()
}
