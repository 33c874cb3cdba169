package push

import (
	"ShopTalk/internal/pkg/consts"
	"errors"
	log "log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// 会话状态机：connecting → authenticated → active → closed / errored
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateActive
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

var (
	// ErrChannelAuthFailed 首帧鉴权失败或作用域不合法
	ErrChannelAuthFailed = errors.New("推送通道鉴权失败")
	// ErrNotActive 会话未进入 active 状态时拒绝推送
	ErrNotActive = errors.New("推送通道未就绪")
)

const (
	scopeTimeout  = 10 * time.Second
	writeTimeout  = 10 * time.Second
	typingMaxSize = 4 << 10
)

// Session 一条已升级的推送连接，归属单个客服
type Session struct {
	conn    *websocket.Conn
	staffID uint64
	shopID  string
	state   atomic.Int32
}

// NewSession Token 校验已由上层完成，会话自 connecting 起步
func NewSession(conn *websocket.Conn, staffID uint64) *Session {
	s := &Session{conn: conn, staffID: staffID}
	s.state.Store(int32(StateConnecting))
	return s
}

func (s *Session) State() State { return State(s.state.Load()) }

// StaffID 连接归属的客服
func (s *Session) StaffID() uint64 { return s.staffID }

// ShopID 鉴权帧声明的店铺作用域，active 前为空
func (s *Session) ShopID() string { return s.shopID }

// MarkAuthenticated Token 校验通过后进入 authenticated
func (s *Session) MarkAuthenticated() {
	s.state.CompareAndSwap(int32(StateConnecting), int32(StateAuthenticated))
}

// AwaitScope 阻塞读取首帧。首帧必须是 auth 帧且声明且仅声明一个店铺，
// 否则会话进入 errored 并返回 ErrChannelAuthFailed。
func (s *Session) AwaitScope() (string, error) {
	if s.State() != StateAuthenticated {
		return "", s.fail(ErrChannelAuthFailed)
	}

	_ = s.conn.SetReadDeadline(time.Now().Add(scopeTimeout))
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return "", s.fail(ErrChannelAuthFailed)
	}
	_ = s.conn.SetReadDeadline(time.Time{})

	frame, err := DecodeFrame(data)
	if err != nil || frame.MessageType != consts.FrameAuth || frame.Metadata.ShopID == "" {
		return "", s.fail(ErrChannelAuthFailed)
	}

	s.shopID = frame.Metadata.ShopID
	s.state.Store(int32(StateActive))
	return s.shopID, nil
}

// Run 推送主循环：监听 Redis 频道写出推送帧，同时读循环侦测断开并转发 typing 帧。
// 返回时会话已处于 closed 或 errored。
func (s *Session) Run(redisCh <-chan *redis.Message, onTyping func(*Frame)) {
	if s.State() != StateActive {
		s.fail(ErrNotActive)
		return
	}

	stopChan := make(chan struct{})

	// 读循环：typing 帧转发，其余仅用于侦测断开
	go func() {
		defer close(stopChan)
		s.conn.SetReadLimit(typingMaxSize)
		for {
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				return
			}
			frame, err := DecodeFrame(data)
			if err != nil {
				log.Warn("推送帧解析失败", "staffID", s.staffID, "err", err)
				continue
			}
			if frame.MessageType == consts.FrameTyping && onTyping != nil {
				frame.Metadata.ShopID = s.shopID
				onTyping(frame)
			}
		}
	}()

	for {
		select {
		case msg, ok := <-redisCh:
			if !ok {
				s.close()
				return
			}
			if err := s.Send([]byte(msg.Payload)); err != nil {
				log.Error("WS 推送失败", "staffID", s.staffID, "shopID", s.shopID, "err", err)
				return
			}
		case <-stopChan:
			log.Info("客服 WS 连接已断开", "staffID", s.staffID, "shopID", s.shopID)
			s.close()
			return
		}
	}
}

// Send 写出一帧，失败即进入 errored
func (s *Session) Send(data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return s.fail(err)
	}
	return nil
}

// Close 主动关闭连接并落入 closed 态
func (s *Session) Close() {
	s.close()
}

func (s *Session) close() {
	s.state.Store(int32(StateClosed))
	_ = s.conn.Close()
}

func (s *Session) fail(err error) error {
	s.state.Store(int32(StateErrored))
	_ = s.conn.Close()
	return err
}
