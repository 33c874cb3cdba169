package handler

import (
	"ShopTalk/internal/pkg/consts"
	"ShopTalk/internal/pkg/redis"
	"ShopTalk/internal/pkg/response"
	"ShopTalk/internal/pkg/security"
	"ShopTalk/internal/push"
	"ShopTalk/internal/service"
	"context"
	"errors"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	chatService service.ChatService
}

func NewWsHandler(chatService service.ChatService) *WsHandler {
	return &WsHandler{chatService: chatService}
}

// Connect 建立客服推送通道
// Token 经 query 传入，升级后首帧必须是声明店铺作用域的 auth 帧
func (s *WsHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}

	session := push.NewSession(conn, claims.StaffID)
	session.MarkAuthenticated()

	shopID, err := session.AwaitScope()
	if err != nil {
		log.Warn("WS 作用域协商失败", "staffID", claims.StaffID, "err", err)
		return
	}

	// 作用域店铺必须归当前客服所有
	if err := s.chatService.AuthorizeShop(c.Request.Context(), claims.StaffID, shopID); err != nil {
		if !errors.Is(err, service.ErrShopNotFound) && !errors.Is(err, service.ErrShopNotOwned) {
			log.Error("WS 店铺归属校验失败", "staffID", claims.StaffID, "shopID", shopID, "err", err)
		}
		_ = session.Send([]byte(`{"messageType":"error","metadata":{}}`))
		session.Close()
		return
	}

	// 订阅店铺频道，所有入站消息与 typing 帧都走这条总线
	pubsub := redis.Subscribe(context.Background(), consts.ChatShopKey+shopID)
	defer func() {
		_ = pubsub.Close()
	}()

	log.Info("客服 WS 连接已建立", "staffID", claims.StaffID, "shopID", shopID)

	session.Run(pubsub.Channel(), s.chatService.RelayTyping)
}
