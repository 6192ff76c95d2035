package edgecache

import "strings"

// Validator 表示 ETag 的校验级别，strong 为字节级一致，weak 允许语义等价。
type Validator string

const (
	// ValidatorStrong 字节级一致的强校验器。
	ValidatorStrong Validator = "strong"
	// ValidatorWeak 语义等价的弱校验器，带 W/ 前缀。
	ValidatorWeak Validator = "weak"
)

// FormatETag 将任意实体标识规整为指定级别的 ETag 语法。
// 空标识返回空串；未知级别同样返回空串，调用方应视为“无校验器”。
// 对固定级别该函数幂等。
func FormatETag(entityID string, kind Validator) string {
	etag := entityID
	if etag == "" {
		return ""
	}
	switch kind {
	case ValidatorWeak:
		if strings.HasPrefix(etag, "W/") {
			return etag
		}
		if strings.HasPrefix(etag, `"`) && strings.HasSuffix(etag, `"`) {
			return "W/" + etag
		}
		return `W/"` + etag + `"`
	case ValidatorStrong:
		if strings.HasPrefix(etag, `W/"`) {
			etag = strings.TrimPrefix(etag, "W/")
		}
		if !strings.HasSuffix(etag, `"`) {
			etag = `"` + etag + `"`
		}
		return etag
	default:
		return ""
	}
}
