package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/sheetedit/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file may set STORE_KEY_COLUMN; a missing file is fine
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sheetctl:", cli.Message(err))
		os.Exit(cli.ExitCode(err))
	}
}
