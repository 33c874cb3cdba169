package client

import (
	"ShopTalk/internal/pkg/consts"
	"ShopTalk/internal/push"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// ErrChannelAuthFailed 推送通道拒绝凭据或作用域
var ErrChannelAuthFailed = errors.New("推送通道鉴权失败")

const dialTimeout = 10 * time.Second

// PushChannel 工作台侧的推送连接，一次只服务一个店铺作用域。
// 切换店铺必须整体拆除重建，没有原地换作用域的路径
type PushChannel struct {
	endpoint string
	token    string
	shopID   string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	// Frames 已解码的推送帧，连接终止时关闭
	Frames chan *push.Frame
}

// NewPushChannel endpoint 形如 ws://host/api/chat/ws
func NewPushChannel(endpoint, token, shopID string) *PushChannel {
	return &PushChannel{
		endpoint: endpoint,
		token:    token,
		shopID:   shopID,
		Frames:   make(chan *push.Frame, 64),
	}
}

// Open 建立连接并完成作用域协商：
// 拨号后立即发送声明店铺的 auth 帧，随后启动读循环。
// 服务端鉴权拒绝发生在协议升级之前，所以升级被拒按
// ErrChannelAuthFailed 处理；拨不通、超时等连通性错误原样上抛
func (s *PushChannel) Open() error {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("token", s.token)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) {
			return ErrChannelAuthFailed
		}
		return fmt.Errorf("推送通道拨号失败: %w", err)
	}

	authFrame, err := json.Marshal(push.Frame{
		MessageType: consts.FrameAuth,
		Metadata:    push.Metadata{ShopID: s.shopID},
	})
	if err != nil {
		_ = conn.Close()
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, authFrame); err != nil {
		// 升级已完成，写失败属连接中断而非鉴权拒绝
		_ = conn.Close()
		return fmt.Errorf("auth 帧发送失败: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.closed = false
	s.mu.Unlock()

	go s.readLoop(conn)
	return nil
}

// SendTyping 上行一条输入中状态帧
func (s *PushChannel) SendTyping(sessionID string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("推送通道未建立")
	}

	frame, err := json.Marshal(push.Frame{
		MessageType: consts.FrameTyping,
		Metadata:    push.Metadata{ShopID: s.shopID, SessionID: sessionID},
	})
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// Close 拆除连接，Frames 随之关闭
func (s *PushChannel) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func (s *PushChannel) readLoop(conn *websocket.Conn) {
	defer func() {
		s.Close()
		close(s.Frames)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := push.DecodeFrame(data)
		if err != nil {
			log.Warn("推送帧解析失败", "err", err)
			continue
		}
		select {
		case s.Frames <- frame:
		default:
			// 消费方停滞时丢帧。推送只是延迟优化，权威拉取会兜底
			log.Warn("推送帧缓冲已满，丢弃", "type", frame.MessageType)
		}
	}
}
