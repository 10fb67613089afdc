package models

// Platform is the closed set of site tags a URL can be classified as.
type Platform string

const (
	PlatformZhihu       Platform = "zhihu"
	PlatformXiaohongshu Platform = "xiaohongshu"
	PlatformTwitter     Platform = "twitter"
	PlatformWechat      Platform = "wechat"
	PlatformUnknown     Platform = "unknown"
)

// Platforms lists every tag in a stable order.
var Platforms = []Platform{
	PlatformZhihu,
	PlatformXiaohongshu,
	PlatformTwitter,
	PlatformWechat,
	PlatformUnknown,
}

func (p Platform) String() string { return string(p) }
