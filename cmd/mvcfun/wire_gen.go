//go:build !wireinject

package main

import (
	"io"
)

func initApplication(out io.Writer) (*application, func(), error) {
	cfg := provideConfig()
	logger := provideLogger(out, cfg)
	reg := provideRegistry()
	managers := provideManagers(cfg, logger)
	r, err := provideRouter(cfg, reg, logger)
	if err != nil {
		return nil, nil, err
	}
	srv, cleanup := provideServer(cfg, r, managers, reg, logger)
	admin := provideAdminServer(cfg, srv, r, reg)
	app := newApplication(cfg, logger, r, srv, admin)
	return app, cleanup, nil
}
