package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeImage = "image/"

	// MaxImageUploadBytes 题目图片上传大小上限
	MaxImageUploadBytes = 8 << 20
)

var (
	AllowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}
)
