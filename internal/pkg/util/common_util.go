package util

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateMessageID 生成旧版扁平表使用的字符串消息主键
func GenerateMessageID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateCounterpartID 生成带 user_ 前缀的访客标识
// 前缀是旧版会话复合 ID 的解码锚点，不可省略
func GenerateCounterpartID() string {
	return fmt.Sprintf("user_%s_%d", uuid.NewString()[:8], time.Now().UnixMilli())
}

// GetSafeContentType 通过文件头嗅探真实的 MIME 类型
func GetSafeContentType(reader io.ReadSeeker) (string, error) {
	buf := make([]byte, 512)
	n, err := reader.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}

	if _, err = reader.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return http.DetectContentType(buf[:n]), nil
}
