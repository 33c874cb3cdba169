package dto

// MediaUploadResp 附件上传响应
type MediaUploadResp struct {
	URL         string `json:"url"`
	ObjectName  string `json:"object_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
