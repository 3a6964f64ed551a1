package main

import (
	"errors"
	"sort"
	"sync"

	"github.com/philippkemmeter/mvcfun/internal/config"
	"github.com/philippkemmeter/mvcfun/internal/controller"
	"github.com/philippkemmeter/mvcfun/internal/router"
)

const welcomePage = `<!DOCTYPE html>
<html><head><title>mvcfun</title></head>
<body><h1>mvcfun</h1><p>Try <a href="/static/">/static/</a>, <a href="/api/items">/api/items</a> or <a href="/whoami?x=1">/whoami</a>.</p></body>
</html>`

var errMissingName = errors.New(`body must be a JSON object with a "name" field`)

// itemStore backs the /api/items demo.
type itemStore struct {
	mu    sync.Mutex
	items map[string]struct{}
}

func (s *itemStore) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for name := range s.items {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *itemStore) add(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[name] = struct{}{}
}

func (s *itemStore) remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[name]
	delete(s.items, name)
	return ok
}

func registerControllers(r *router.Router, cfg config.Config) error {
	home, err := controller.NewFunc(controller.Exact("/"), func(ctx *controller.Context) error {
		return ctx.Managers.HTML.Write(ctx.Response, welcomePage, "en")
	}, controller.WithLanguage("en"))
	if err != nil {
		return err
	}

	whoami, err := controller.NewFunc(controller.Exact("/whoami"), func(ctx *controller.Context) error {
		req := ctx.Request
		return ctx.Managers.JSON.Write(ctx.Response, map[string]any{
			"method":     req.Method(),
			"host":       req.Host(),
			"port":       req.Port(),
			"path":       req.Path(),
			"query":      req.Query(),
			"request_id": ctx.RequestID,
		}, "")
	})
	if err != nil {
		return err
	}

	static, err := controller.NewStatic(controller.MustCompile(`^/static/`), cfg.HtdocsDir)
	if err != nil {
		return err
	}

	private, err := controller.NewForbidden(controller.MustCompile(`^/private(/|$)`), cfg.HtdocsDir, false)
	if err != nil {
		return err
	}

	old, err := controller.NewRedirect(controller.Exact("/index.html"), "/", 0, false)
	if err != nil {
		return err
	}

	items, err := newItemsController()
	if err != nil {
		return err
	}

	for _, c := range []controller.Controller{home, whoami, static, private, old, items} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func newItemsController() (*controller.Rest, error) {
	store := &itemStore{items: make(map[string]struct{})}
	rest, err := controller.NewRest(controller.MustCompile(`^/api/items/?$`))
	if err != nil {
		return nil, err
	}

	rest.Get(func(ctx *controller.Context) error {
		return rest.Reply(ctx, store.list(), nil)
	})
	rest.Post(func(ctx *controller.Context) error {
		name, ok := itemName(ctx)
		if !ok {
			return rest.Reply(ctx, nil, errMissingName)
		}
		store.add(name)
		return rest.Reply(ctx, name, nil)
	})
	rest.Delete(func(ctx *controller.Context) error {
		name, _ := ctx.Request.QueryValue("name")
		return rest.Reply(ctx, store.remove(name), nil)
	})
	return rest, nil
}

func itemName(ctx *controller.Context) (string, bool) {
	body, ok := ctx.Request.Body().(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := body["name"].(string)
	return name, ok && name != ""
}
