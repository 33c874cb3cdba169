package client

import (
	"ShopTalk/internal/api/dto"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

var (
	// ErrNetworkTimeout 单次调用超时即终态失败，不自动重试
	ErrNetworkTimeout = errors.New("网络请求超时")
	// ErrUnauthorized 凭据被服务端拒绝
	ErrUnauthorized = errors.New("登录状态已失效")
	// ErrStaleScope 响应返回时作用域已切换，结果应被丢弃
	ErrStaleScope = errors.New("响应已过期")
	// ErrRequestFailed 服务端返回业务错误
	ErrRequestFailed = errors.New("请求失败")
)

// envelope 服务端统一响应壳，data 延迟解码
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIClient 工作台 REST 访问层
// 没有取消令牌：快速切换会话产生的旧请求，在响应落地时
// 用捕获的作用域标识与当前作用域比对，不一致就丢弃结果
type APIClient struct {
	http *resty.Client

	mu    sync.RWMutex
	token string
	scope string
}

// NewAPIClient 构造函数，timeout 对每次调用生效
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &APIClient{http: httpClient}
}

// SetToken 更新鉴权凭据
func (s *APIClient) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SetScope 切换当前作用域（选中的店铺或会话）
func (s *APIClient) SetScope(scope string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope = scope
}

func (s *APIClient) snapshot() (token, scope string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.scope
}

func (s *APIClient) currentScope() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// ListConversations 拉取店铺会话列表
func (s *APIClient) ListConversations(shopID string) ([]*dto.ConversationDTO, error) {
	var res []*dto.ConversationDTO
	err := s.doGet("/api/chat/conversations", map[string]string{"shopId": shopID}, &res)
	return res, err
}

// ListMessages 分页拉取会话历史
func (s *APIClient) ListMessages(sessionID string, page int) ([]*dto.MessageDTO, error) {
	var res []*dto.MessageDTO
	err := s.doGet("/api/chat/history", map[string]string{
		"sessionId": sessionID,
		"page":      fmt.Sprintf("%d", page),
	}, &res)
	return res, err
}

// ListShops 拉取名下店铺
func (s *APIClient) ListShops() ([]*dto.ShopDTO, error) {
	var res []*dto.ShopDTO
	err := s.doGet("/api/shops", nil, &res)
	return res, err
}

// SendMessage 追加一条客服消息。非幂等，失败绝不自动重试
func (s *APIClient) SendMessage(req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	var res dto.MessageDTO
	if err := s.doPost("/api/chat/send", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MarkRead 标记会话已读
func (s *APIClient) MarkRead(sessionID string) (*dto.MarkReadResp, error) {
	var res dto.MarkReadResp
	if err := s.doPost("/api/chat/read", &dto.MarkReadReq{SessionID: sessionID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *APIClient) doGet(path string, query map[string]string, out interface{}) error {
	token, scope := s.snapshot()
	req := s.http.R().SetAuthToken(token)
	if query != nil {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	return s.resolve(resp, err, scope, out)
}

func (s *APIClient) doPost(path string, body, out interface{}) error {
	token, scope := s.snapshot()
	resp, err := s.http.R().SetAuthToken(token).SetBody(body).Post(path)
	return s.resolve(resp, err, scope, out)
}

func (s *APIClient) resolve(resp *resty.Response, err error, capturedScope string, out interface{}) error {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrNetworkTimeout
		}
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	// 作用域已切换的响应一律丢弃
	if capturedScope != s.currentScope() {
		return ErrStaleScope
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	switch env.Code {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("%w: %s", ErrRequestFailed, env.Message)
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
	}
	return nil
}
