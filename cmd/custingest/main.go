// Command custingest runs the customer ingestion server or imports a
// local CSV file directly.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
