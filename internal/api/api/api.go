package api

import (
	"github.com/gin-contrib/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"

	"github.com/aniiishetty/event/cmd/middleware"
	"github.com/aniiishetty/event/internal/service"
)

type Routers struct {
	Service service.Service
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())

	colleges := app.Group("/api/colleges")
	colleges.POST("/add", r.Service.AddCollege)
	colleges.GET("", r.Service.GetColleges)
	colleges.GET("/check-college/:collegeId", r.Service.CheckCollege)

	registrations := app.Group("/api/registrations")
	registrations.POST("/register", r.Service.Register)
	registrations.GET("", r.Service.GetRegistrations)
	registrations.GET("/pdf", r.Service.RosterPDF)

	app.GET("/healthz", r.Service.Health)
	app.GET("/metrics", func(c *ginext.Context) {
		promhttp.Handler().ServeHTTP(c.Writer, c.Request)
	})

	return app
}
