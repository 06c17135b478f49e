// Command landviewer renders a cadastral overlay onto a field photo from
// the command line: it loads both images, replays a JSON session document
// (rotation, crop, colour filters, correspondence points, opacity, line
// strength), and writes the composited result as PNG. With --watch it keeps
// re-rendering whenever an input file changes.
package main

import (
	"log/slog"
	"os"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	if err := newRootCmd(log).Execute(); err != nil {
		log.Error("command failed", "err", err)
		os.Exit(1)
	}
}
