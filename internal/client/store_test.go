package client

import (
	"ShopTalk/internal/api/dto"
	"ShopTalk/internal/pkg/consts"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func writeEnvelope(w http.ResponseWriter, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(dto.Response{Code: code, Message: message, Data: data})
}

// 历史翻页：首页走时间线对账，更早的页必须原样返回拉取结果
func TestHistoryPagingReturnsOlderPages(t *testing.T) {
	session := "shop_1757591780450_1_user_abc_123"
	newer := dto.MessageDTO{ID: "m-new", SessionID: session, SenderType: consts.SenderCustomer,
		Content: "新消息", MsgType: "text", CreatedAt: time.Now()}
	older := dto.MessageDTO{ID: "m-old", SessionID: session, SenderType: consts.SenderCustomer,
		Content: "旧消息", MsgType: "text", CreatedAt: time.Now().Add(-time.Hour)}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/history" {
			writeEnvelope(w, 404, "not found", nil)
			return
		}
		switch r.URL.Query().Get("page") {
		case "1":
			writeEnvelope(w, 200, "success", []dto.MessageDTO{newer})
		case "2":
			writeEnvelope(w, 200, "success", []dto.MessageDTO{older})
		default:
			writeEnvelope(w, 200, "success", []dto.MessageDTO{})
		}
	}))
	defer srv.Close()

	client := NewChatClient(NewAPIClient(srv.URL, time.Second), "", NewFeatureFlags())

	got, err := client.GetMessages(session, 2)
	if err != nil {
		t.Fatalf("GetMessages page 2: %v", err)
	}
	if len(got) != 1 || got[0].ID != "m-old" {
		t.Fatalf("第 2 页结果 = %+v, want m-old", got)
	}

	got, err = client.GetMessages(session, 1)
	if err != nil {
		t.Fatalf("GetMessages page 1: %v", err)
	}
	if len(got) != 1 || got[0].ID != "m-new" {
		t.Fatalf("首页结果 = %+v, want m-new", got)
	}
}

// 缓存开启时发送失败的条目仍必须出现在读路径上，供手动重发
func TestFailedSendVisibleAfterCachedRead(t *testing.T) {
	session := "shop_1757591780450_1_user_abc_123"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat/history":
			writeEnvelope(w, 200, "success", []dto.MessageDTO{})
		case "/api/chat/send":
			writeEnvelope(w, 500, "内部错误", nil)
		default:
			writeEnvelope(w, 404, "not found", nil)
		}
	}))
	defer srv.Close()

	flags := NewFeatureFlags()
	flags.Enable(DomainMessages)
	client := NewChatClient(NewAPIClient(srv.URL, time.Second), "", flags)

	// 先读一次，发送前的空视图进入缓存
	view, err := client.GetMessages(session, 1)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(view) != 0 {
		t.Fatalf("预期空视图, got %+v", view)
	}

	tempID, err := client.SendMessage(session, "请查收", "text")
	if err == nil {
		t.Fatal("发送应失败")
	}
	if tempID >= 0 {
		t.Fatalf("temp id = %d, want 负数", tempID)
	}

	view, err = client.GetMessages(session, 1)
	if err != nil {
		t.Fatalf("GetMessages after failure: %v", err)
	}
	if len(view) != 1 || view[0].TempID != tempID || view[0].State != DeliveryFailed {
		t.Fatalf("失败条目在读路径上不可见: %+v", view)
	}
}
