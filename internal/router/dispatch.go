package router

import (
	"errors"
	"fmt"

	"github.com/philippkemmeter/mvcfun/internal/controller"
	"github.com/philippkemmeter/mvcfun/internal/logging"
)

var ErrControllerPanic = errors.New("controller panicked")

// Dispatch resolves the controller for ctx.Request and runs it. Lookup
// failures answer 404 or 400. A controller error or panic is logged and
// answered with 500 unless the controller already sent a response.
func (r *Router) Dispatch(ctx *controller.Context) {
	log := ctx.Log()
	req := ctx.Request

	c, err := r.Resolve(req.Host(), req.Port(), req.Path())
	if err != nil {
		var werr error
		if errors.Is(err, ErrInvalidPort) {
			werr = ctx.Manager().WriteBadRequest(ctx.Response, "")
		} else {
			log.Debug("no controller",
				logging.String("request_id", ctx.RequestID),
				logging.String("host", req.Host()),
				logging.String("path", req.Path()),
			)
			werr = ctx.Manager().WriteNotFound(ctx.Response, req.Path(), "")
		}
		if werr != nil {
			log.Error("write failed", logging.String("request_id", ctx.RequestID), logging.Err(werr))
		}
		return
	}

	if err := run(c, ctx); err != nil {
		log.Error("controller failed",
			logging.String("request_id", ctx.RequestID),
			logging.String("path", req.Path()),
			logging.String("controller", controller.Describe(c)),
			logging.Err(err),
		)
		if ctx.Response.Written() {
			return
		}
		if werr := ctx.Manager().WriteInternalServerError(ctx.Response, err, c.Language()); werr != nil {
			log.Error("write failed", logging.String("request_id", ctx.RequestID), logging.Err(werr))
		}
	}
}

func run(c controller.Controller, ctx *controller.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrControllerPanic, rec)
		}
	}()
	return c.Run(ctx)
}
