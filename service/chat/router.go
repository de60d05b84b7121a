package chat

import (
	mid "CSProject/middleware"
	"CSProject/middleware/security"

	"github.com/gin-gonic/gin"
)

// Router builds the gateway's http surface: the login endpoint, the
// websocket upgrade, and the authenticated conversation API.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mid.Origin())

	r.POST("/api/login", s.HandlerLogin)
	r.GET("/ws", s.HandleWS)

	api := r.Group("/api", security.Middleware([]byte(s.cfg.Auth.JwtSecret)))
	{
		api.GET("/conversations", s.HandlerListConversations)
		api.POST("/conversations", s.HandlerCreateConversation)
		api.DELETE("/conversations/:number", s.HandlerDeleteConversation)
		api.PATCH("/conversations/:number/name", s.HandlerRename)
		api.GET("/conversations/:number/snapshot", s.HandlerSnapshot)
		api.POST("/conversations/:number/delta", s.HandlerDelta)
		api.POST("/conversations/:number/messages", s.HandlerAddMessages)
		api.DELETE("/conversations/:number/messages", s.HandlerRemoveMessage)
		api.POST("/conversations/:number/members", s.HandlerAddMembers)
		api.DELETE("/conversations/:number/members", s.HandlerRemoveMembers)
	}
	return r
}
