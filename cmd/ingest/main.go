// Command ingest loads marketplace entities from the relational source into
// the vector store.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
