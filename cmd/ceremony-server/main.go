package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/coldwallet-ceremony/api/ceremonyhandler"
	"github.com/ruteri/coldwallet-ceremony/ceremony"
	"github.com/ruteri/coldwallet-ceremony/cmd/flags"
	"github.com/ruteri/coldwallet-ceremony/httpserver"
	"github.com/urfave/cli/v2"
)

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

func main() {
	app := &cli.App{
		Name:  "ceremony-server",
		Usage: "Coordinate cold wallet creation ceremonies",
		Flags: append(append(append(append(
			[]cli.Flag{ListenAddrFlag, flags.LogServiceFlagFn("ceremony-server")},
			flags.LogFlags...),
			flags.ServerFlags...),
			flags.VerifierFlags...),
			flags.ArchiveFlags...),
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String(ListenAddrFlag.Name)

			logger := flags.SetupLogger(cCtx)

			verifier, err := flags.SetupVerifier(cCtx)
			if err != nil {
				logger.Error("Failed to configure response verifier", "err", err)
				return err
			}

			archive, err := flags.SetupArchive(cCtx, logger)
			if err != nil {
				logger.Error("Failed to configure archive", "err", err)
				return err
			}

			registry := ceremony.NewRegistry(verifier, logger)
			handler := ceremonyhandler.NewHandler(registry, archive, logger)

			srv, err := httpserver.New(flags.ConfigureServer(cCtx, logger, listenAddr), handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			srv.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop", "verifier", verifier.Name())
			<-exit
			logger.Info("Shutdown signal received")

			srv.Shutdown(context.Background())
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
