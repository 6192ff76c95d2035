package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Manifest 是构建期产物：逻辑路径到存储键的只读映射。
type Manifest map[string]string

// ParseManifest 解析 JSON 形式的资产清单。
func ParseManifest(raw []byte) (Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parse asset manifest: %w", err)
	}
	if manifest == nil {
		manifest = Manifest{}
	}
	return manifest, nil
}

// LoadManifest 从磁盘读取并解析清单文件。
func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset manifest: %w", err)
	}
	return ParseManifest(raw)
}

// Descriptor 描述一次路径解析的结果，按查找临时生成，从不持久化。
type Descriptor struct {
	Input       string
	Path        string
	Key         string
	Filename    string
	Extension   string
	MimeType    string
	ContentType string
}

// Resolve 将 URL 路径解析为清单条目。精确匹配优先；
// 以 / 结尾的路径回退为目录索引查找，html 优先、其余按字典序取首个。
// 无法解析返回 nil，调用方视为资源不存在。
func (m Manifest) Resolve(input, defaultType string) *Descriptor {
	path := strings.TrimLeft(input, "/")
	if path == "" {
		path = "/"
	}

	filePath := ""
	if _, ok := m[path]; ok {
		filePath = path
	} else if strings.HasSuffix(path, "/") {
		filePath = m.resolveIndex(path)
	}
	if filePath == "" {
		return nil
	}

	filename := baseName(filePath)
	extension := Extension(filename)
	mimeType, contentType := ContentType(filename, defaultType)

	return &Descriptor{
		Input:       path,
		Path:        filePath,
		Key:         m[filePath],
		Filename:    filename,
		Extension:   extension,
		MimeType:    mimeType,
		ContentType: contentType,
	}
}

// resolveIndex 查找目录索引文件。tie-break 规则是行为契约的一部分：
// .html 永远排在最前，其余候选按字典序。
func (m Manifest) resolveIndex(path string) string {
	prefix := path
	if prefix == "/" {
		prefix = ""
	}
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(/)?index\.[a-zA-Z0-9]+$`)

	var candidates []string
	for key := range m {
		if pattern.MatchString(key) {
			candidates = append(candidates, key)
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		iHTML := strings.HasSuffix(candidates[i], ".html")
		jHTML := strings.HasSuffix(candidates[j], ".html")
		if iHTML != jHTML {
			return iHTML
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}

// baseName 取最后一个路径分隔符（/ 或 \）之后的文件名。
func baseName(path string) string {
	if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
