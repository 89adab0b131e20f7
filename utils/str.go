package utils

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	UTF8  = "UTF8"
	UTF_8 = "UTF-8"
	GBK   = "GBK"
)

var (
	ErrUnknownEncoding = errors.New("unknown text encoding")
)

// 按编码名包装为UTF-8读取器。UTF-8时识别BOM，带UTF-16 BOM的文件也能正确解码
func NewDecodingReader(r io.Reader, enc string) (io.Reader, error) {
	switch strings.ToUpper(enc) {
	case "", UTF8, UTF_8:
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case GBK:
		return transform.NewReader(r, simplifiedchinese.GBK.NewDecoder()), nil
	}
	return nil, ErrUnknownEncoding
}

// UTF-8 转 GBK
func Utf8ToGbk(s []byte) (d []byte, e error) {
	reader := transform.NewReader(strings.NewReader(string(s)), simplifiedchinese.GBK.NewEncoder())
	d, e = io.ReadAll(reader)
	return
}
