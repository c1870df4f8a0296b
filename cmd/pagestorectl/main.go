// Command pagestorectl drives the storage engine's three layers
// end-to-end from the command line: create/open a device-backed
// key/value index, put/get/delete/scan entries, and inspect buffer
// pool and index statistics.
package main

import (
	"fmt"
	"os"

	"github.com/ado-labs/pagestore/internal/logging"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "pagestorectl",
		Usage: "drive the paged storage engine (device + buffer pool + B+ tree index) from the shell",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable development-style structured logging"},
		},
		Commands: []*cli.Command{
			createCommand(),
			putCommand(),
			getCommand(),
			deleteCommand(),
			scanCommand(),
			statsCommand(),
			benchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "pagestorectl:", err)
		os.Exit(1)
	}
}

func newID() string { return uuid.NewString() }

func loggerFrom(c *cli.Context) (*zap.Logger, error) {
	return logging.New(c.Bool("verbose"))
}
