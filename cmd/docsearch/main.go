// Command docsearch indexes local documents and searches them semantically.
package main

import (
	"github.com/joho/godotenv"

	"github.com/custodia-labs/docsearch/internal/adapters/driving/cli"
)

func main() {
	_ = godotenv.Load()

	cli.SetBootstrap(bootstrap)
	cli.Execute()
}
