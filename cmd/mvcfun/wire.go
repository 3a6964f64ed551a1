//go:build wireinject

package main

import (
	"io"

	"github.com/google/wire"
)

func initApplication(out io.Writer) (*application, func(), error) {
	wire.Build(
		provideConfig,
		provideLogger,
		provideRegistry,
		provideManagers,
		provideRouter,
		provideServer,
		provideAdminServer,
		newApplication,
	)
	return nil, nil, nil
}
