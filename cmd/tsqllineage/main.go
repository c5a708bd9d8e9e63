// Command tsqllineage extracts column-level data lineage from T-SQL scripts.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
