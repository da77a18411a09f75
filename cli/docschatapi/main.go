package main

import (
	"os"

	servecmder "github.com/webtechie/docschat/cmd/docschat/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "docschatapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .docschat/ config directory")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
