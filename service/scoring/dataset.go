/*
 * @module service/scoring/dataset
 * @description 训练数据集表示、种子化合成数据生成与CSV读写，用于初始模型引导训练
 * @architecture 分层架构 - 数据准备层
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 合成生成/CSV导入 -> Dataset -> 初始训练
 * @rules 生成规则与权重固定：还款3、水电2、充值>=3得1、受薪2/自雇1、收入>=15000得1、年龄25-50得1，
 *        概率=min(0.9, 总分/10+0.1)；同一种子生成结果可复现
 * @dependencies encoding/csv, math/rand, strconv
 * @refs service/scoring/engine.go, service/utils/csv_reader.go
 */

package scoring

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"
)

// Dataset 训练数据集，列顺序即特征契约顺序
type Dataset struct {
	Columns  []string
	Features [][]float64
	Labels   []int
}

// Rows 返回样本数
func (d *Dataset) Rows() int {
	return len(d.Features)
}

// 合成数据的月收入取值集合
var incomeChoices = []float64{5000, 8000, 12000, 15000, 20000, 25000}

// GenerateBeneficiaryData 按固定规则生成种子化的合成受益人数据集。
// 生成的标签按加权评分规则转为概率后随机采样，概率上限0.9
func GenerateBeneficiaryData(count int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))

	ds := &Dataset{
		Columns:  DefaultContract(),
		Features: make([][]float64, 0, count),
		Labels:   make([]int, 0, count),
	}

	for i := 0; i < count; i++ {
		repayment := bernoulli(rng, 0.75)
		tenure := float64(6 + rng.Intn(19)) // 6-24个月
		utility := bernoulli(rng, 0.7)
		recharge := float64(1 + rng.Intn(4)) // 每月1-4次
		highNeed := bernoulli(rng, 0.4)
		age := float64(18 + rng.Intn(48)) // 18-65岁
		income := incomeChoices[rng.Intn(len(incomeChoices))]
		employment := float64(rng.Intn(3)) // 0失业 1自雇 2受薪

		weight := 0.0
		if repayment == 1 {
			weight += 3
		}
		if utility == 1 {
			weight += 2
		}
		if recharge >= 3 {
			weight += 1
		}
		switch employment {
		case 2:
			weight += 2
		case 1:
			weight += 1
		}
		if income >= 15000 {
			weight += 1
		}
		if age >= 25 && age <= 50 {
			weight += 1
		}

		probability := weight/10.0 + 0.1
		if probability > 0.9 {
			probability = 0.9
		}

		label := 0
		if rng.Float64() < probability {
			label = 1
		}

		ds.Features = append(ds.Features, []float64{
			repayment, tenure, utility, recharge, highNeed, age, income, employment,
		})
		ds.Labels = append(ds.Labels, label)
	}

	return ds
}

// bernoulli 以概率p返回1
func bernoulli(rng *rand.Rand, p float64) float64 {
	if rng.Float64() < p {
		return 1
	}
	return 0
}

// WriteCSV 导出数据集为CSV，包含标识列和目标列
func (d *Dataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := append([]string{ColumnBeneficiaryID}, d.Columns...)
	header = append(header, ColumnTarget)
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, row := range d.Features {
		record := make([]string, 0, len(row)+2)
		record = append(record, strconv.Itoa(i+1))
		for _, value := range row {
			record = append(record, strconv.FormatFloat(value, 'f', -1, 64))
		}
		record = append(record, strconv.Itoa(d.Labels[i]))
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// LoadCSV 从CSV读入数据集。首行为表头，标识列忽略，目标列作为标签，
// 其余列按出现顺序作为特征契约
func LoadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("读取CSV失败: %w", err)
	}
	if len(records) < 2 {
		return nil, &InsufficientDataError{Rows: len(records) - 1, Reason: "CSV中没有数据行"}
	}

	header := records[0]
	targetIdx := -1
	featureIdx := make([]int, 0, len(header))
	columns := make([]string, 0, len(header))
	for i, col := range header {
		switch col {
		case ColumnTarget:
			targetIdx = i
		case ColumnBeneficiaryID:
			// 标识列忽略
		default:
			featureIdx = append(featureIdx, i)
			columns = append(columns, col)
		}
	}
	if targetIdx < 0 {
		return nil, fmt.Errorf("CSV缺少目标列 %s", ColumnTarget)
	}

	ds := &Dataset{
		Columns:  columns,
		Features: make([][]float64, 0, len(records)-1),
		Labels:   make([]int, 0, len(records)-1),
	}

	for lineNo, record := range records[1:] {
		row := make([]float64, len(featureIdx))
		for j, idx := range featureIdx {
			value, err := strconv.ParseFloat(record[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("第%d行列 %s 解析失败: %w", lineNo+2, columns[j], err)
			}
			row[j] = value
		}
		label, err := strconv.Atoi(record[targetIdx])
		if err != nil {
			return nil, fmt.Errorf("第%d行目标列解析失败: %w", lineNo+2, err)
		}
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("第%d行目标列取值 %d 非法，标签只允许0或1", lineNo+2, label)
		}
		ds.Features = append(ds.Features, row)
		ds.Labels = append(ds.Labels, label)
	}

	return ds, nil
}
