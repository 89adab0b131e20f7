package utils

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	FILE_EXT_TIF  = ".tif"
	FILE_EXT_TIFF = ".tiff"
)

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, os.ModePerm)
}

// 按模式查找文件，结果排序。支持 doublestar 语法：任意位置的"**"、{a,b} 等，
// 如 data/**/ortho/*.tif
func Glob(pattern string) (paths []string, err error) {
	if paths, err = doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly()); err != nil {
		return
	}
	sort.Strings(paths)
	return
}

// 列出目录下（不递归）的tif文件
func ListTifs(dir string) (paths []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case FILE_EXT_TIF, FILE_EXT_TIFF:
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return
}
