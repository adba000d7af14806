// dumpctl submits ST22 dumps to the analysis gateway and reads results back.
package main

import (
	"os"

	"github.com/bryanwahyu/dump-analyzer/cmd/dumpctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
