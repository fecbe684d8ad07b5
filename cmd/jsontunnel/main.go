// Command jsontunnel extracts and validates JSON from language model output.
//
// Usage:
//
//	jsontunnel describe -schema person.json
//	jsontunnel extract [-query '.name'] < reply.txt
//	jsontunnel validate -schema person.json < reply.txt
//	jsontunnel run -schema person.json -prompt "Who wrote Dune?" [-document page.html]
//	jsontunnel batch -schema person.json -prompts prompts.txt [-concurrency 4]
//
// Settings for the model endpoint come from the environment (and a .env
// file): OPENAI_API_KEY, OPENAI_API_BASE_URL, JSONTUNNEL_MODEL.
package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	os.Exit(newApp(os.Stdin, os.Stdout, os.Stderr).run(os.Args[1:]))
}
