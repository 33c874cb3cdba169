package api

import "ShopTalk/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	AuthHandler  *handler.AuthHandler
	ShopHandler  *handler.ShopHandler
	ChatHandler  *handler.ChatHandler
	MediaHandler *handler.MediaHandler
	WSHandler    *handler.WsHandler
}
