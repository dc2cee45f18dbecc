// Command ninep-authd serves the authentication coprocessor's
// /ctl /rpc /log /key tree over 9P2000, loading its key-ring from a
// flat file at startup if one is given. Flag parsing, usage text, and
// logging are deliberately thin; this exists to exercise authfs, not
// as a polished front-end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"ninep.dev/ninep/auth"
	"ninep.dev/ninep/authcrypto"
	"ninep.dev/ninep/authfs"
	"ninep.dev/ninep/dial"
	"ninep.dev/ninep/server"
)

func main() {
	addr := flag.StringP("addr", "a", "tcp!*!567", "9P dial string to listen on")
	keyFile := flag.StringP("keyring", "k", "", "key-ring file to load at startup and save to on the ctl save command")
	fido2 := flag.Bool("fido2", false, "enable the mock FIDO2 authenticator (no hardware token support yet)")
	verbose := flag.BoolP("verbose", "v", false, "log every request")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verbose {
		log = log.Level(zerolog.WarnLevel)
	}

	if err := run(*addr, *keyFile, *fido2, log); err != nil {
		fmt.Fprintln(os.Stderr, "ninep-authd:", err)
		os.Exit(1)
	}
}

func run(addr, keyFile string, fido2 bool, log zerolog.Logger) error {
	ring := auth.NewKeyRing(16)
	if keyFile != "" {
		if data, err := os.ReadFile(keyFile); err == nil {
			if err := ring.Load(data); err != nil {
				return err
			}
		} else if !os.IsNotExist(err) {
			return err
		}
	}

	opts := []authfs.Option{}
	if keyFile != "" {
		opts = append(opts, authfs.WithKeyRingFile(keyFile))
	}
	if fido2 {
		opts = append(opts, authfs.WithFIDO2Authenticator(authcrypto.MockAuthenticator{}))
	}
	backend := authfs.New(ring, opts...)

	l, err := dial.Listen(addr, "tcp", "567", 5)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	log.Info().Str("addr", addr).Msg("serving")
	return server.Listen(ctx, l, func() server.Backend { return backend }, server.WithLogger(log))
}
