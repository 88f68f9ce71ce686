// cmd/status.go

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

type chunking struct {
	Path          string
	FileSize      int64
	BufferSize    int
	NumChunks     int
	LastChunkSize int
}

func printJson(v interface{}) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatalf("json: %s", err)
	}
	fmt.Println(string(output))
}

func status(ctx *cli.Context) error {
	setLoggerLevel(ctx)
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("FILE is needed")
	}
	bufSize := ctx.Int("buffer-size") << 10
	for i := 0; i < ctx.Args().Len(); i++ {
		path := ctx.Args().Get(i)
		st, err := os.Stat(path)
		if err != nil {
			logger.Errorf("stat %s: %s", path, err)
			continue
		}
		c := chunking{
			Path:       path,
			FileSize:   st.Size(),
			BufferSize: bufSize,
		}
		c.NumChunks = int(st.Size() / int64(bufSize))
		c.LastChunkSize = int(st.Size() % int64(bufSize))
		if c.LastChunkSize > 0 {
			c.NumChunks++
		} else if st.Size() > 0 {
			c.LastChunkSize = bufSize
		}
		printJson(&c)
	}
	return nil
}

func statusFlags() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "show how files would be partitioned into chunks",
		ArgsUsage: "FILE ...",
		Action:    status,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "buffer-size",
				Value: 1024,
				Usage: "size of each chunk buffer in KiB",
			},
		},
	}
}
