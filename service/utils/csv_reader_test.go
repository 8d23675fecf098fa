/*
 * @module service/utils/csv_reader_test
 * @description CSV编码转换工具的单元测试
 * @architecture 单元测试 - 验证GBK到UTF-8的转换和UTF-8原样透传
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 构造字节序列 -> EnsureUTF8 -> 断言输出
 * @rules 合法UTF-8必须原样返回
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs csv_reader.go
 */

package utils

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

func TestEnsureUTF8_PassThrough(t *testing.T) {
	input := []byte("age,creditworthy\n30,1\n")
	assert.Equal(t, input, EnsureUTF8(input))
}

func TestEnsureUTF8_ConvertsGBK(t *testing.T) {
	original := "姓名,age\n张三,30\n"
	gbk, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), []byte(original))
	require.NoError(t, err)

	assert.Equal(t, []byte(original), EnsureUTF8(gbk))
}

func TestOpenTrainingCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	reader, err := OpenTrainingCSV(path)
	require.NoError(t, err)

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(content))
}

func TestOpenTrainingCSV_NotFound(t *testing.T) {
	_, err := OpenTrainingCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
