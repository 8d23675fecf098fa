/*
 * @module service/scoring/dataset_test
 * @description 合成数据生成与CSV读写的单元测试
 * @architecture 单元测试 - 验证种子可复现性和CSV往返一致性
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 生成数据集 -> CSV导出 -> 重新导入 -> 断言一致
 * @rules 相同种子生成逐值相同的数据集；CSV往返不丢失信息
 * @dependencies testing, bytes, github.com/stretchr/testify/assert
 * @refs dataset.go
 */

package scoring

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBeneficiaryData_Reproducible(t *testing.T) {
	first := GenerateBeneficiaryData(100, 42)
	second := GenerateBeneficiaryData(100, 42)

	assert.Equal(t, first.Columns, second.Columns)
	assert.Equal(t, first.Features, second.Features)
	assert.Equal(t, first.Labels, second.Labels)
}

func TestGenerateBeneficiaryData_Shape(t *testing.T) {
	ds := GenerateBeneficiaryData(100, 42)

	assert.Equal(t, 100, ds.Rows())
	assert.Equal(t, DefaultContract(), FeatureContract(ds.Columns))

	contract := DefaultContract()
	for _, row := range ds.Features {
		require.Len(t, row, len(contract))
		data := FeatureMap{}
		for i, name := range contract {
			data[name] = row[i]
		}
		assert.NoError(t, contract.Validate(data))
	}

	// 两个类别都必须出现，否则无法训练
	positives := 0
	for _, label := range ds.Labels {
		if label == 1 {
			positives++
		}
	}
	assert.Greater(t, positives, 0)
	assert.Less(t, positives, ds.Rows())
}

func TestDataset_CSVRoundTrip(t *testing.T) {
	original := GenerateBeneficiaryData(30, 42)

	var buf bytes.Buffer
	require.NoError(t, original.WriteCSV(&buf))

	loaded, err := LoadCSV(&buf)
	require.NoError(t, err)

	assert.Equal(t, original.Columns, loaded.Columns)
	assert.Equal(t, original.Features, loaded.Features)
	assert.Equal(t, original.Labels, loaded.Labels)
}

func TestLoadCSV_MissingTargetColumn(t *testing.T) {
	csv := "beneficiary_id,age\n1,30\n"
	_, err := LoadCSV(bytes.NewBufferString(csv))
	assert.Error(t, err)
}

func TestLoadCSV_Empty(t *testing.T) {
	_, err := LoadCSV(bytes.NewBufferString("age,creditworthy\n"))
	assert.Error(t, err)
}

func TestLoadCSV_RejectsNonBinaryLabel(t *testing.T) {
	csv := "age,creditworthy\n30,1\n40,2\n50,0\n"
	_, err := LoadCSV(bytes.NewBufferString(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "第3行")
	assert.Contains(t, err.Error(), "只允许0或1")
}

func TestLoadCSV_RejectsNegativeLabel(t *testing.T) {
	csv := "age,creditworthy\n30,-1\n"
	_, err := LoadCSV(bytes.NewBufferString(csv))
	assert.Error(t, err)
}
