package consts

const (
	MimePrefixImage = "image"
	MimePrefixAudio = "audio"
	MimePrefixVideo = "video"
)

// 消息发送方
const (
	SenderCustomer = "customer"
	SenderStaff    = "staff"
	SenderSystem   = "system"
)

// 消息类型
const (
	MsgTypeText  = "text"
	MsgTypeImage = "image"
	MsgTypeFile  = "file"
	MsgTypeVoice = "voice"
)

// 推送帧类型
const (
	FrameAuth       = "auth"
	FrameNewMessage = "new_message"
	FrameTyping     = "typing"
)
