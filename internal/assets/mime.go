package assets

import (
	"regexp"
	"strings"
)

// mimeTypes 固定的扩展名映射表。不依赖 stdlib mime 包，
// 避免 /etc/mime.types 等平台差异影响输出的确定性。
var mimeTypes = map[string]string{
	"html":        "text/html",
	"htm":         "text/html",
	"css":         "text/css",
	"txt":         "text/plain",
	"md":          "text/markdown",
	"xml":         "text/xml",
	"csv":         "text/csv",
	"js":          "application/javascript",
	"mjs":         "application/javascript",
	"json":        "application/json",
	"map":         "application/json",
	"webmanifest": "application/manifest+json",
	"wasm":        "application/wasm",
	"pdf":         "application/pdf",
	"zip":         "application/zip",
	"svg":         "image/svg+xml",
	"png":         "image/png",
	"jpg":         "image/jpeg",
	"jpeg":        "image/jpeg",
	"gif":         "image/gif",
	"webp":        "image/webp",
	"avif":        "image/avif",
	"ico":         "image/x-icon",
	"woff":        "font/woff",
	"woff2":       "font/woff2",
	"ttf":         "font/ttf",
	"otf":         "font/otf",
	"eot":         "application/vnd.ms-fontobject",
	"mp3":         "audio/mpeg",
	"ogg":         "audio/ogg",
	"mp4":         "video/mp4",
	"webm":        "video/webm",
}

// extensionPattern 提取文件名中最后一个扩展名，容忍尾随 query/fragment。
var extensionPattern = regexp.MustCompile(`(?i)\.([0-9a-z]+)(?:[?#]|$)`)

// Extension 返回文件名的扩展名（小写，不含点），无法识别时返回空串。
func Extension(filename string) string {
	matches := extensionPattern.FindStringSubmatch(filename)
	if len(matches) < 2 {
		return ""
	}
	return strings.ToLower(matches[1])
}

// TypeByExtension 返回扩展名对应的 MIME 类型，未知扩展返回空串。
func TypeByExtension(ext string) string {
	return mimeTypes[strings.ToLower(ext)]
}

// ContentType 推断文件的 mimeType 与下发给客户端的 contentType。
// 文本类与 application/javascript 追加 charset=utf-8；
// mimeType 无法确定时 contentType 取 defaultType。
func ContentType(filename, defaultType string) (mimeType, contentType string) {
	mimeType = TypeByExtension(Extension(filename))
	contentType = mimeType
	if contentType == "" {
		contentType = defaultType
	}
	if strings.HasPrefix(contentType, "text/") || contentType == "application/javascript" {
		contentType += "; charset=utf-8"
	}
	return mimeType, contentType
}
