/*
 * @module service/utils/csv_reader
 * @description 训练数据CSV读取工具，自动识别GBK/UTF-8编码并统一转换为UTF-8
 * @architecture 工具函数模式 - 无状态转换
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 文件打开 -> 编码探测 -> 转换为UTF-8 -> 交给上层解析
 * @rules 编码转换失败时按原始字节返回，由CSV解析层报错
 * @dependencies golang.org/x/text/encoding/simplifiedchinese, golang.org/x/text/transform
 * @refs service/scoring/dataset.go
 */

package utils

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// OpenTrainingCSV 打开训练数据CSV文件并返回UTF-8内容的读取器。
// 历史导出的数据文件可能是GBK编码，非法UTF-8时按GBK转换
func OpenTrainingCSV(path string) (io.Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(EnsureUTF8(data)), nil
}

// EnsureUTF8 把可能为GBK编码的字节序列转换为UTF-8。
// 已经是合法UTF-8的内容原样返回；GBK转换失败时也原样返回
func EnsureUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	converted, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
	if err != nil {
		return data
	}
	return converted
}
