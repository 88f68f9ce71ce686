// cmd/bench.go

package main

import (
	"AveIO/pkg/chunk"
	"AveIO/pkg/utils"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func benchFlags() *cli.Command {
	return &cli.Command{
		Name:      "bench",
		Usage:     "measure sequential throughput of the engine on a scratch file",
		ArgsUsage: "[DIR]",
		Action:    bench,
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:  "size",
				Value: 256,
				Usage: "size of the scratch file in MiB",
			},
			&cli.IntFlag{
				Name:  "buffer-size",
				Value: 1024,
				Usage: "size of each chunk buffer in KiB",
			},
		},
	}
}

func bench(ctx *cli.Context) error {
	setLoggerLevel(ctx)
	dir := os.TempDir()
	if ctx.Args().Len() > 0 {
		dir = ctx.Args().Get(0)
	}
	path := filepath.Join(dir, "aveio-bench-"+uuid.New().String())
	size := int64(ctx.Uint64("size")) << 20
	conf := &chunk.Config{BufferSize: ctx.Int("buffer-size") << 10}

	payload := make([]byte, 128<<10)
	rand.Read(payload)

	w := chunk.NewWriter(conf)
	defer w.Close()
	if err := w.Begin(path, size, chunk.Truncate); err != nil {
		if chunk.IsNoSpace(err) {
			logger.Errorf("not enough space in %s for %d MiB", dir, size>>20)
		}
		return err
	}
	defer os.Remove(path)

	start := time.Now()
	for w.TotalStored() < size {
		n := utils.Min(len(payload), int(size-w.TotalStored()))
		if err := w.WriteBytes(payload[:n]); err != nil {
			return err
		}
	}
	if err := w.Complete(); err != nil {
		return err
	}
	used := time.Since(start)
	fmt.Printf("Write: %.1f MiB/s (%d bytes in %s)\n",
		float64(size)/(1<<20)/used.Seconds(), size, used)

	r := chunk.NewReader(conf)
	defer r.Close()
	if err := r.Begin(path); err != nil {
		return err
	}
	buf := make([]byte, 128<<10)
	start = time.Now()
	for r.HasMore() {
		n := utils.Min(len(buf), int(r.RemainingTotal()))
		if err := r.ReadBytes(buf[:n]); err != nil {
			return err
		}
	}
	if err := r.End(); err != nil {
		return err
	}
	used = time.Since(start)
	fmt.Printf("Read:  %.1f MiB/s (%d bytes in %s)\n",
		float64(size)/(1<<20)/used.Seconds(), size, used)

	ru := utils.GetRusage()
	logger.Infof("CPU usage: %.2fs user, %.2fs system", ru.GetUtime(), ru.GetStime())
	return nil
}
