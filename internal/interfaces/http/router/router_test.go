package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.groups)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterUse(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine).Use(func(c *gin.Context) {
		c.Header("X-API", "1")
		c.Next()
	})
	r.Register(NewDomainGroup("test", "/test").GET("", func(c *gin.Context) {
		c.Status(http.StatusOK)
	}))
	r.Setup()
	engine.GET("/outside", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test", nil))
	assert.Equal(t, "1", w.Header().Get("X-API"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outside", nil))
	assert.Empty(t, w.Header().Get("X-API"))
}

func TestRouterMounted(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.Register(
		NewDomainGroup("health", "/health").GET("", ok),
		NewDomainGroup("cards", "/cards").GET("/:id", ok),
	)
	r.Setup()

	assert.Equal(t, []string{"GET /api/v2/health", "GET /api/v2/cards/:id"}, r.Mounted())
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and length", func(t *testing.T) {
		g := NewDomainGroup("cards", "/cards").GET("", nil).GET("/:id", nil)
		assert.Equal(t, "cards", g.Name())
		assert.Equal(t, 2, g.Len())
	})

	t.Run("With scopes middleware to the routes added through it", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.GET("/open", func(c *gin.Context) {
			c.String(http.StatusOK, "open")
		})
		g.With(func(c *gin.Context) {
			c.Header("X-Guard", "on")
			c.Next()
		}).POST("/guarded", func(c *gin.Context) {
			c.String(http.StatusCreated, "created")
		})
		assert.Equal(t, 2, g.Len())

		NewRouter(engine).Register(g).Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/test/guarded", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "on", w.Header().Get("X-Guard"))

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/open", nil))
		assert.Equal(t, "open", w.Body.String())
		assert.Empty(t, w.Header().Get("X-Guard"))
	})
}
