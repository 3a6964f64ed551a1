package main

import (
	"net/http"

	"github.com/philippkemmeter/mvcfun/internal/config"
	"github.com/philippkemmeter/mvcfun/internal/logging"
	"github.com/philippkemmeter/mvcfun/internal/router"
	"github.com/philippkemmeter/mvcfun/internal/server"
)

type application struct {
	Config config.Config
	Logger *logging.SlogLogger
	Router *router.Router
	Server *server.Server
	Admin  *http.Server
}

func newApplication(cfg config.Config, logger *logging.SlogLogger, r *router.Router, srv *server.Server, admin *http.Server) *application {
	return &application{
		Config: cfg,
		Logger: logger,
		Router: r,
		Server: srv,
		Admin:  admin,
	}
}
