package repository

import (
	"errors"
	"testing"
)

// 编码解码必须构成双射，店铺 ID 自带锚点串时也不例外
func TestConversationIDRoundTrip(t *testing.T) {
	cases := []struct {
		name          string
		shopID        string
		counterpartID string
	}{
		{"普通店铺", "shop_1757591780450_1", "user_67bi6gybb_1757684317815"},
		{"店铺ID包含锚点串", "shop_123_user_45", "user_abc_999"},
		{"店铺ID以锚点串结尾", "legacy_user_", "user_x_1"},
		{"短访客段", "s1", "user_a"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := EncodeConversationID(tc.shopID, tc.counterpartID)
			shopID, counterpartID, err := DecodeConversationID(id)
			if err != nil {
				t.Fatalf("解码失败: %v", err)
			}
			if shopID != tc.shopID || counterpartID != tc.counterpartID {
				t.Fatalf("双射被破坏: got (%q, %q), want (%q, %q)",
					shopID, counterpartID, tc.shopID, tc.counterpartID)
			}
		})
	}
}

// 编码前置条件校验：违规标识会让解码在错误位置切分
func TestValidCounterpartID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"user_67bi6gybb_1757684317815", true},
		{"user_abc", true},
		{"user_a", true},
		// 空访客段、缺前缀、锚点串嵌入访客段、编码后产生第二个锚点
		{"", false},
		{"user_", false},
		{"visitor_9", false},
		{"user_a_user_b", false},
		{"user_user_x", false},
		{"xuser_abc", false},
	}

	for _, tc := range cases {
		if got := ValidCounterpartID(tc.id); got != tc.want {
			t.Errorf("ValidCounterpartID(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}

	// 合法标识必然满足双射
	for _, id := range []string{"user_67bi6gybb_1757684317815", "user_abc", "user_a"} {
		conv := EncodeConversationID("shop_123_user_45", id)
		shopID, counterpartID, err := DecodeConversationID(conv)
		if err != nil || shopID != "shop_123_user_45" || counterpartID != id {
			t.Errorf("合法标识 %q 双射被破坏: (%q, %q, %v)", id, shopID, counterpartID, err)
		}
	}
}

func TestDecodeConversationIDInvalid(t *testing.T) {
	cases := []string{
		"",
		"no-separator-here",
		"_user_abc", // 店铺段为空
		"shop_1",
	}

	for _, id := range cases {
		if _, _, err := DecodeConversationID(id); !errors.Is(err, ErrInvalidConversationID) {
			t.Errorf("DecodeConversationID(%q) 应返回 ErrInvalidConversationID, got %v", id, err)
		}
	}
}
