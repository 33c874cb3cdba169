package client

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// 鉴权拒绝发生在协议升级前，服务端以普通 JSON 应答
func newRejectingServer(hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":401,"message":"登录状态已失效"}`))
	}))
}

func wsEndpoint(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
}

func TestHandshakeRejectionIsAuthFailure(t *testing.T) {
	var hits int32
	srv := newRejectingServer(&hits)
	defer srv.Close()

	ch := NewPushChannel(wsEndpoint(srv), "bad-token", "shop_1")
	if err := ch.Open(); !errors.Is(err, ErrChannelAuthFailed) {
		t.Fatalf("err = %v, want ErrChannelAuthFailed", err)
	}
}

// 拨不通与鉴权拒绝必须可区分，连通性错误不触发鉴权重连
func TestConnectivityErrorNotAuthFailure(t *testing.T) {
	ch := NewPushChannel("ws://127.0.0.1:1/api/chat/ws", "token", "shop_1")
	err := ch.Open()
	if err == nil {
		t.Fatal("拨号应失败")
	}
	if errors.Is(err, ErrChannelAuthFailed) {
		t.Fatalf("连通性错误被判为鉴权失败: %v", err)
	}
}

// 鉴权失败只额外重连一次，随后退化为轮询
func TestConnectRetriesOnceOnAuthFailure(t *testing.T) {
	var hits int32
	srv := newRejectingServer(&hits)
	defer srv.Close()

	client := NewChatClient(NewAPIClient(srv.URL, time.Second), wsEndpoint(srv), NewFeatureFlags())
	if err := client.Connect("bad-token", "shop_1"); !errors.Is(err, ErrChannelAuthFailed) {
		t.Fatalf("Connect err = %v, want ErrChannelAuthFailed", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("握手 %d 次, want 2", got)
	}
	if !client.Degraded() {
		t.Fatal("应退化为轮询对账")
	}
}

func TestConnectivityFailureDegradesWithoutRetry(t *testing.T) {
	client := NewChatClient(NewAPIClient("http://127.0.0.1:1", time.Second),
		"ws://127.0.0.1:1/api/chat/ws", NewFeatureFlags())

	err := client.Connect("token", "shop_1")
	if err == nil {
		t.Fatal("Connect 应失败")
	}
	if errors.Is(err, ErrChannelAuthFailed) {
		t.Fatalf("连通性错误被判为鉴权失败: %v", err)
	}
	if !client.Degraded() {
		t.Fatal("应退化为轮询对账")
	}
}
