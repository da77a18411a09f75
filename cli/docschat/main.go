package main

import (
	"os"

	docschatcmder "github.com/webtechie/docschat/cmd/docschat"
)

func main() {
	cmd := docschatcmder.NewDocschatCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
