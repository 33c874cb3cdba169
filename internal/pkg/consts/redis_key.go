package consts

const (
	// ChatShopKey 店铺维度的推送频道前缀，chat:shop:<shopID>
	ChatShopKey = "chat:shop:"
	// TokenBlacklistKey 已注销 Token 签名黑名单前缀
	TokenBlacklistKey = "auth:token:blacklist:"
	// ShopUnreadKey 店铺未读总数快照前缀 (校准任务写入)
	ShopUnreadKey = "chat:unread:shop:"
)
