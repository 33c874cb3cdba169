package handler

import (
	"ShopTalk/internal/api/dto"
	"ShopTalk/internal/pkg/consts"
	"ShopTalk/internal/pkg/minio"
	"ShopTalk/internal/pkg/response"
	"ShopTalk/internal/pkg/util"
	"ShopTalk/internal/service"
	log "log/slog"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MediaHandler struct{}

func NewMediaHandler() *MediaHandler {
	return &MediaHandler{}
}

// Upload 聊天附件上传，仅接受图片、音频与常规文档
func (s *MediaHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	reader, err := file.Open()
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	defer func() { _ = reader.Close() }()

	contentType, err := util.GetSafeContentType(reader)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	isImage := strings.HasPrefix(contentType, consts.MimePrefixImage)
	isAudio := strings.HasPrefix(contentType, consts.MimePrefixAudio)
	isDoc := strings.HasPrefix(contentType, "application/") || strings.HasPrefix(contentType, "text/")
	if !isImage && !isAudio && !isDoc {
		response.Error(c, service.ErrFileNotSupported)
		return
	}

	ext := path.Ext(file.Filename)
	objectName := time.Now().Format("2006/01/02/") + uuid.NewString() + ext

	fileKey, err := minio.UploadFile(c.Request.Context(), objectName, reader, file.Size, contentType)
	if err != nil {
		log.ErrorContext(c, "MinIO 上传失败", "err", err)
		response.Error(c, service.UnExpectedError)
		return
	}

	response.Success(c, &dto.MediaUploadResp{
		URL:         minio.GetPublicURL(fileKey),
		ObjectName:  fileKey,
		ContentType: contentType,
		Size:        file.Size,
	})
}
