// Command ninep-fsd serves a host directory (plus its in-memory /tmp
// overlay) over 9P2000. It exists to exercise dial, server, and
// fsfile end to end; flag parsing, usage text, and logging are
// deliberately thin, not a polished front-end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"ninep.dev/ninep/dial"
	"ninep.dev/ninep/fsfile"
	"ninep.dev/ninep/server"
)

func main() {
	addr := flag.StringP("addr", "a", "tcp!*!564", "9P dial string to listen on")
	root := flag.StringP("root", "r", ".", "host directory to export")
	verbose := flag.BoolP("verbose", "v", false, "log every request")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verbose {
		log = log.Level(zerolog.WarnLevel)
	}

	if err := run(*addr, *root, log); err != nil {
		fmt.Fprintln(os.Stderr, "ninep-fsd:", err)
		os.Exit(1)
	}
}

func run(addr, root string, log zerolog.Logger) error {
	backend, err := fsfile.New(root)
	if err != nil {
		return err
	}

	l, err := dial.Listen(addr, "tcp", "564", 5)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	log.Info().Str("addr", addr).Str("root", root).Msg("serving")
	return server.Listen(ctx, l, func() server.Backend { return backend }, server.WithLogger(log))
}
