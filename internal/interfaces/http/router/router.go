package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	apiVersion = "v1"
	// apiPrefix is the mount point of every authenticated route.
	apiPrefix = "/api/" + apiVersion
)

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// resource is one URL prefix of the versioned API together with its routes.
type resource struct {
	prefix string
	guard  []gin.HandlerFunc
	routes []route
}

// newResource starts a resource; guard runs before every route in it.
func newResource(prefix string, guard ...gin.HandlerFunc) *resource {
	return &resource{prefix: prefix, guard: guard}
}

func (r *resource) add(method, p string, handlers ...gin.HandlerFunc) *resource {
	r.routes = append(r.routes, route{method: method, path: p, handlers: handlers})
	return r
}

func (r *resource) get(p string, h ...gin.HandlerFunc) *resource   { return r.add(http.MethodGet, p, h...) }
func (r *resource) post(p string, h ...gin.HandlerFunc) *resource  { return r.add(http.MethodPost, p, h...) }
func (r *resource) put(p string, h ...gin.HandlerFunc) *resource   { return r.add(http.MethodPut, p, h...) }
func (r *resource) patch(p string, h ...gin.HandlerFunc) *resource { return r.add(http.MethodPatch, p, h...) }

func (r *resource) mount(api *gin.RouterGroup) {
	g := api.Group(r.prefix, r.guard...)
	for _, rt := range r.routes {
		g.Handle(rt.method, rt.path, rt.handlers...)
	}
}

// mountAPI registers resources under apiPrefix. mw applies to these routes
// only, never to engine-level routes such as /health.
func mountAPI(engine *gin.Engine, mw []gin.HandlerFunc, resources []*resource) {
	api := engine.Group(apiPrefix, mw...)
	for _, r := range resources {
		if len(r.routes) > 0 {
			r.mount(api)
		}
	}
}
