package handler

import (
	"ShopTalk/internal/api/dto"
	"ShopTalk/internal/pkg/response"
	"ShopTalk/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService service.ChatService
}

func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ListConversations 店铺会话列表接口
func (s *ChatHandler) ListConversations(c *gin.Context) {
	staffID := c.GetUint64("staffID")
	shopID := c.Query("shopId")
	if shopID == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.chatService.ListConversations(c, staffID, shopID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ListCustomers 店铺访客档案列表接口
func (s *ChatHandler) ListCustomers(c *gin.Context) {
	staffID := c.GetUint64("staffID")
	shopID := c.Query("shopId")
	if shopID == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.chatService.ListCustomers(c, staffID, shopID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetChatHistory 会话历史消息接口
func (s *ChatHandler) GetChatHistory(c *gin.Context) {
	staffID := c.GetUint64("staffID")
	sessionID := c.Query("sessionId")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	res, err := s.chatService.ListMessages(c, staffID, sessionID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SendMessage 客服发送消息接口
func (s *ChatHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	staffID := c.GetUint64("staffID")
	res, err := s.chatService.SendStaffMessage(c, staffID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MarkAsRead 标记会话已读接口
func (s *ChatHandler) MarkAsRead(c *gin.Context) {
	var req dto.MarkReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	staffID := c.GetUint64("staffID")
	res, err := s.chatService.MarkSessionRead(c, staffID, req.SessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// CustomerMessage 访客入站消息接口，挂载在免鉴权的 widget 路由组
func (s *ChatHandler) CustomerMessage(c *gin.Context) {
	var req dto.CustomerMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.chatService.HandleCustomerMessage(c, &req, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
