// Package server assembles the HTTP router.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/studyhub/pkg/studyhub/auth"
	"github.com/mikepea/studyhub/pkg/studyhub/groups"
	"github.com/mikepea/studyhub/pkg/studyhub/logging"
	"github.com/mikepea/studyhub/pkg/studyhub/sessions"
	"github.com/mikepea/studyhub/pkg/studyhub/subjects"
	"github.com/mikepea/studyhub/pkg/studyhub/users"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/mikepea/studyhub/api/swagger"
)

// Deps are the collaborators the router is built from
type Deps struct {
	DB     *gorm.DB
	Tokens *auth.TokenService
	Hasher auth.PasswordHasher
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NewRouter wires every route under /api plus health and swagger
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger())

	r.GET("/health", health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	credentials := auth.NewCredentialStore(deps.DB, deps.Hasher)
	requireAuth := auth.AuthMiddleware(deps.Tokens, deps.DB)

	api := r.Group("/api")
	{
		api.GET("/health", health)

		// Auth routes (public)
		authHandler := auth.NewHandler(deps.DB, credentials, deps.Tokens)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Account routes
		usersHandler := users.NewHandler(users.NewService(deps.DB, credentials))
		usersHandler.RegisterRoutes(api.Group("/user", requireAuth))

		// Study groups: listing and reading are public, everything else needs a token
		groupsHandler := groups.NewHandler(groups.NewService(deps.DB))
		groupsHandler.RegisterPublicRoutes(api.Group("/study-groups"))

		protected := api.Group("/study-groups", requireAuth)
		groupsHandler.RegisterRoutes(protected)
		groupsHandler.RegisterMemberRoutes(protected)

		subjects.NewHandler(subjects.NewService(deps.DB)).RegisterRoutes(protected)
		sessions.NewHandler(sessions.NewService(deps.DB)).RegisterRoutes(protected)
	}

	return r
}
