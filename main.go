package main

import (
	"github.com/luma/amictl/cmd"
)

func main() {
	cmd.Execute()
}
