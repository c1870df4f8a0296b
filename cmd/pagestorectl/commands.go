package main

import (
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/urfave/cli/v2"
)

var dirFlag = &cli.StringFlag{
	Name:     "dir",
	Aliases:  []string{"d"},
	Usage:    "database directory (holds data.rec and index.btr)",
	Required: true,
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "create a new database directory",
		Flags: []cli.Flag{dirFlag},
		Action: func(c *cli.Context) error {
			dir := c.String("dir")
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
			log, err := loggerFrom(c)
			if err != nil {
				return err
			}
			e, err := createEngine(dir, log)
			if err != nil {
				return err
			}
			defer e.close()
			fmt.Printf("created database at %s (run id %s)\n", dir, newID())
			return nil
		},
	}
}

func putCommand() *cli.Command {
	return &cli.Command{
		Name:  "put",
		Usage: "insert or update a row",
		Flags: []cli.Flag{
			dirFlag,
			&cli.IntFlag{Name: "id", Required: true},
			&cli.StringFlag{Name: "value", Required: true},
		},
		Action: func(c *cli.Context) error {
			log, err := loggerFrom(c)
			if err != nil {
				return err
			}
			e, err := openEngine(c.String("dir"), log)
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.put(int32(c.Int("id")), c.String("value")); err != nil {
				return err
			}
			fmt.Printf("put %d -> %q\n", c.Int("id"), c.String("value"))
			return nil
		},
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:  "get",
		Usage: "look up a row by id",
		Flags: []cli.Flag{dirFlag, &cli.IntFlag{Name: "id", Required: true}},
		Action: func(c *cli.Context) error {
			log, err := loggerFrom(c)
			if err != nil {
				return err
			}
			e, err := openEngine(c.String("dir"), log)
			if err != nil {
				return err
			}
			defer e.close()
			val, err := e.get(int32(c.Int("id")))
			if err != nil {
				return err
			}
			fmt.Println(val)
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "delete a row by id",
		Flags: []cli.Flag{dirFlag, &cli.IntFlag{Name: "id", Required: true}},
		Action: func(c *cli.Context) error {
			log, err := loggerFrom(c)
			if err != nil {
				return err
			}
			e, err := openEngine(c.String("dir"), log)
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.delete(int32(c.Int("id"))); err != nil {
				return err
			}
			fmt.Printf("deleted %d\n", c.Int("id"))
			return nil
		},
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "print every row in ascending key order",
		Flags: []cli.Flag{dirFlag},
		Action: func(c *cli.Context) error {
			log, err := loggerFrom(c)
			if err != nil {
				return err
			}
			e, err := openEngine(c.String("dir"), log)
			if err != nil {
				return err
			}
			defer e.close()
			rows, err := e.scanOrdered()
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Printf("%d\t%s\n", r.ID, r.Value)
			}
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print buffer-pool and index statistics",
		Flags: []cli.Flag{dirFlag},
		Action: func(c *cli.Context) error {
			log, err := loggerFrom(c)
			if err != nil {
				return err
			}
			e, err := openEngine(c.String("dir"), log)
			if err != nil {
				return err
			}
			defer e.close()
			stats := e.store.PoolStats()
			fmt.Printf("tuples:      %d\n", e.store.NumTuples())
			fmt.Printf("index nodes: %d\n", e.idx.NumNodes())
			fmt.Printf("index keys:  %d\n", e.idx.NumEntries())
			fmt.Printf("pool reads:  %d\n", stats.ReadCount)
			fmt.Printf("pool writes: %d\n", stats.WriteCount)
			return nil
		},
	}
}

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "insert n synthetic rows and report throughput",
		Flags: []cli.Flag{
			dirFlag,
			&cli.IntFlag{Name: "n", Value: 1000, Usage: "number of rows to insert"},
		},
		Action: func(c *cli.Context) error {
			log, err := loggerFrom(c)
			if err != nil {
				return err
			}
			dir := c.String("dir")
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
			e, err := createEngine(dir, log)
			if err != nil {
				return err
			}
			defer e.close()

			n := c.Int("n")
			start := time.Now()
			for i := 0; i < n; i++ {
				if err := e.put(int32(i), gofakeit.Sentence(5)); err != nil {
					return err
				}
			}
			elapsed := time.Since(start)
			fmt.Printf("inserted %d rows in %s (%.0f rows/sec)\n", n, elapsed, float64(n)/elapsed.Seconds())
			return nil
		},
	}
}
