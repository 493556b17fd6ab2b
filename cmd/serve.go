package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonnyShabli/ghsync/internal/Service"
	"github.com/JonnyShabli/ghsync/internal/controller"
	"github.com/JonnyShabli/ghsync/internal/repository"
	pkghttp "github.com/JonnyShabli/ghsync/pkg/http"
	"github.com/JonnyShabli/ghsync/pkg/logster"
	"github.com/JonnyShabli/ghsync/pkg/sig"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the job scheduler and the HTTP control API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		logger := a.logger
		defer func() { _ = logger.Sync() }()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		logger.Infof("starting ghsync %s with %d jobs", Version, len(a.cfg.Jobs))

		g, ctx := errgroup.WithContext(ctx)

		// Gracefully shutdown
		g.Go(func() error {
			return sig.ListenSignal(ctx, logger, cancel)
		})

		repo := repository.NewStorage(logger)
		service := Service.NewServiceObj(repo, logger, a.runner, a.cfg)
		handlerObj := controller.NewHandlers(service, logger)

		g.Go(func() error {
			return logster.LogIfError(logger, service.Start(ctx), "Scheduler")
		})

		handler := pkghttp.NewHandler("/",
			pkghttp.WithLogger(logger),
			pkghttp.DefaultTechOptions(),
			pkghttp.WithMetrics(a.registry),
			controller.WithApiHandler(handlerObj),
		)

		g.Go(func() error {
			return logster.LogIfError(
				logger, pkghttp.RunServer(ctx, a.cfg.Server.Address(), logger, handler),
				"Api server",
			)
		})

		err = g.Wait()
		if err != nil && !errors.Is(err, sig.ErrSignalReceived) {
			logger.WithError(err).Errorf("Exit reason")
			return err
		}
		return nil
	},
}
