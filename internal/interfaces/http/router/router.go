package router

import (
	"net/http"
	"path"
	"slices"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router mounts domain groups under /api/<version> behind shared middleware
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	groups     []*DomainGroup
	mounted    []string
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the prefix, "v1" by default
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a Router on engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware that runs on every versioned route and nowhere else
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register queues groups for Setup
func (r *Router) Register(groups ...*DomainGroup) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// Setup mounts every registered group. Call it once.
func (r *Router) Setup() {
	base := "/api/" + r.apiVersion
	api := r.engine.Group(base)
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}
	for _, g := range r.groups {
		group := api.Group(g.prefix)
		for _, route := range *g.routes {
			group.Handle(route.method, route.path, route.handlers...)
			r.mounted = append(r.mounted, route.method+" "+path.Join(base, g.prefix, route.path))
		}
	}
}

// MountDocs serves the registered OpenAPI document and Swagger UI at
// /swagger/*any behind guard. It sits outside the versioned group so API
// middleware does not run on it.
func (r *Router) MountDocs(guard ...gin.HandlerFunc) {
	handlers := append(slices.Clone(guard), ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/swagger/*any", handlers...)
	r.mounted = append(r.mounted, http.MethodGet+" /swagger/*any")
}

// Mounted lists "METHOD /path" for every route added by Setup and MountDocs
func (r *Router) Mounted() []string {
	return slices.Clone(r.mounted)
}

// DomainGroup collects the routes of one resource under a prefix
type DomainGroup struct {
	name   string
	prefix string
	routes *[]routeDefinition
	chain  []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates an empty group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{
		name:   name,
		prefix: prefix,
		routes: &[]routeDefinition{},
	}
}

// With returns a view of the group whose routes run middleware before their
// handlers. Routes added through the view belong to the original group.
func (dg *DomainGroup) With(middleware ...gin.HandlerFunc) *DomainGroup {
	return &DomainGroup{
		name:   dg.name,
		prefix: dg.prefix,
		routes: dg.routes,
		chain:  append(slices.Clone(dg.chain), middleware...),
	}
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	*dg.routes = append(*dg.routes, routeDefinition{
		method:   method,
		path:     path,
		handlers: append(slices.Clone(dg.chain), handlers...),
	})
	return dg
}

// Name is used in startup logs
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Len returns the number of routes in the group
func (dg *DomainGroup) Len() int {
	return len(*dg.routes)
}
