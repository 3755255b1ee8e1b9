// Command docsmap builds a JSON map of a site's documentation pages.
package main

import "github.com/mesh-intelligence/docsmap/internal/cli"

func main() {
	cli.Execute()
}
