package api

import (
	"ShopTalk/internal/api/middleware"
	"ShopTalk/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", group.AuthHandler.Register)
			authGroup.POST("/login", group.AuthHandler.Login)

			loggedGroup := authGroup.Group("")
			loggedGroup.Use(middleware.AuthMiddleware())
			{
				loggedGroup.POST("/logout", group.AuthHandler.Logout)
				loggedGroup.GET("/me", group.AuthHandler.Me)
			}
		}

		shopGroup := apiGroup.Group("/shops")
		shopGroup.Use(middleware.AuthMiddleware())
		{
			shopGroup.POST("", group.ShopHandler.CreateShop)
			shopGroup.GET("", group.ShopHandler.ListShops)
			shopGroup.GET("/:shopId", group.ShopHandler.GetShop)
		}

		chatGroup := apiGroup.Group("/chat")
		{
			// 推送通道与访客入站消息免 Header 鉴权：
			// 前者通过 query token + 首帧作用域协商，后者来自匿名 widget
			chatGroup.GET("/ws", group.WSHandler.Connect)
			chatGroup.POST("/widget/message", group.ChatHandler.CustomerMessage)

			staffGroup := chatGroup.Group("")
			staffGroup.Use(middleware.AuthMiddleware())
			{
				staffGroup.GET("/conversations", group.ChatHandler.ListConversations)
				staffGroup.GET("/customers", group.ChatHandler.ListCustomers)
				staffGroup.GET("/history", group.ChatHandler.GetChatHistory)
				staffGroup.POST("/send", group.ChatHandler.SendMessage)
				staffGroup.POST("/read", group.ChatHandler.MarkAsRead)
			}
		}

		mediaGroup := apiGroup.Group("/media")
		{
			mediaGroup.Use(middleware.AuthMiddleware())
			mediaGroup.POST("/upload", group.MediaHandler.Upload)
		}
	}

	return r
}
