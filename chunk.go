package viewangle

import (
	"github.com/pkg/errors"
	"github.com/wgdzlh/viewangle/utils"
)

// 影像列表的连续分块，Index即输出文件序号
type Chunk struct {
	Index int
	Paths []string
}

// Split 将列表按顺序切成n个近似等长的连续分块，前 len%n 块各多一个元素。
// n大于列表长度时末尾为空块
func Split(paths []string, n int) (chunks []Chunk) {
	if n <= 0 {
		n = 1
	}
	chunks = make([]Chunk, n)
	size, extra := len(paths)/n, len(paths)%n
	start := 0
	for i := range chunks {
		end := start + size
		if i < extra {
			end++
		}
		chunks[i] = Chunk{Index: i, Paths: paths[start:end:end]}
		start = end
	}
	return
}

// Discover 按模式查找待处理的正射影像
func Discover(pattern string) (paths []string, err error) {
	if paths, err = utils.Glob(pattern); err != nil {
		err = errors.Wrapf(err, "glob %q", pattern)
	}
	return
}
