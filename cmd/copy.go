// cmd/copy.go

package main

import (
	"AveIO/pkg/chunk"
	"AveIO/pkg/utils"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
)

func copyFlags() *cli.Command {
	return &cli.Command{
		Name:      "copy",
		Usage:     "copy a file through the double-buffered engine",
		ArgsUsage: "SRC DST",
		Action:    doCopy,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "buffer-size",
				Value: 1024,
				Usage: "size of each chunk buffer in KiB",
			},
			&cli.Int64Flag{
				Name:  "read-limit",
				Usage: "bandwidth limit for reading in Mbps",
			},
			&cli.Int64Flag{
				Name:  "write-limit",
				Usage: "bandwidth limit for writing in Mbps",
			},
			&cli.BoolFlag{
				Name:  "no-reserve",
				Usage: "don't pre-reserve the final size of DST on disk",
			},
		},
	}
}

func doCopy(ctx *cli.Context) error {
	setLoggerLevel(ctx)
	if ctx.Args().Len() < 2 {
		return fmt.Errorf("SRC and DST are needed")
	}
	src := ctx.Args().Get(0)
	dst := ctx.Args().Get(1)
	conf := &chunk.Config{
		BufferSize:    ctx.Int("buffer-size") << 10,
		DownloadLimit: ctx.Int64("read-limit") << 17, // Mbps to bytes per second
		UploadLimit:   ctx.Int64("write-limit") << 17,
	}

	r := chunk.NewReader(conf)
	defer r.Close()
	if err := r.Begin(src); err != nil {
		return err
	}
	var reserve int64
	if !ctx.Bool("no-reserve") {
		reserve = r.FileSize()
	}
	w := chunk.NewWriter(conf)
	defer w.Close()
	if err := w.Begin(dst, reserve, chunk.Truncate); err != nil {
		if chunk.IsNoSpace(err) {
			logger.Errorf("not enough space on the target device, try --no-reserve")
		}
		return err
	}

	progress, bar := utils.NewDynProgressBar("copy: ", ctx.Bool("quiet"))
	bar.SetTotal(r.FileSize(), false)
	in := bar.ProxyReader(r)
	defer in.Close()

	n, err := io.Copy(w, in)
	if err != nil {
		return err
	}
	if err = w.Complete(); err != nil {
		return err
	}
	if err = r.End(); err != nil {
		return err
	}
	bar.SetTotal(n, true)
	progress.Wait()
	logger.Infof("copied %d bytes from %s to %s", n, src, dst)
	return nil
}
