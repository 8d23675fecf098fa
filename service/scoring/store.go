/*
 * @module service/scoring/store
 * @description 模型仓库，维护进程内唯一的(分类器,标准化器,特征契约)三元组，负责三件套工件的原子加载与保存
 * @architecture 分层架构 - 模型持久化层
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 进程启动空仓库 -> 首次使用懒加载/训练填充 -> 增量更新原地变更并立即持久化 -> 进程退出释放
 * @rules 读操作可并行，写操作全局串行；加载全有或全无，失败不破坏内存态；
 *        多进程共享同一工件目录时为最后写入者胜出，属已接受的限制
 * @dependencies encoding/json, os, path/filepath, sync
 * @refs service/scoring/engine.go
 */

package scoring

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// 模型工件文件名，三件必须始终成套加载/保存
const (
	modelArtifact    = "model.json"
	scalerArtifact   = "scaler.json"
	columnsArtifact  = "feature_columns.json"
	artifactFileMode = 0o644
)

// ModelTriple 当前激活模型版本的三元组
type ModelTriple struct {
	Classifier *SGDClassifier
	Scaler     *StandardScaler
	Contract   FeatureContract
}

// ModelStore 模型仓库，进程内共享的唯一可变模型实例
type ModelStore struct {
	mu     sync.RWMutex
	dir    string
	triple *ModelTriple
}

// NewModelStore 创建指向工件目录的空模型仓库
func NewModelStore(dir string) *ModelStore {
	return &ModelStore{dir: dir}
}

// Load 从工件目录重新加载三元组，任一工件缺失或损坏则整体失败，内存态保持不变
func (s *ModelStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// loadLocked 全有或全无加载：先读入暂存三元组，三件全部成功后才替换内存态
func (s *ModelStore) loadLocked() error {
	staged := &ModelTriple{
		Classifier: NewSGDClassifier(),
		Scaler:     NewStandardScaler(),
	}

	if err := s.readArtifact(modelArtifact, staged.Classifier); err != nil {
		return err
	}
	if err := s.readArtifact(scalerArtifact, staged.Scaler); err != nil {
		return err
	}
	if err := s.readArtifact(columnsArtifact, &staged.Contract); err != nil {
		return err
	}

	if !staged.Classifier.Fitted || !staged.Scaler.Fitted || len(staged.Contract) == 0 {
		return &PersistenceError{Op: "load", Err: fmt.Errorf("工件内容不完整")}
	}
	if len(staged.Classifier.Weights) != len(staged.Contract) {
		return &PersistenceError{Op: "load", Err: &SchemaError{
			Expected: len(staged.Contract), Got: len(staged.Classifier.Weights),
		}}
	}

	s.triple = staged
	slog.Info("模型加载成功", "dir", s.dir, "feature_count", len(staged.Contract))
	return nil
}

// readArtifact 读取并反序列化单个工件
func (s *ModelStore) readArtifact(name string, target interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return &PersistenceError{Op: "load " + name, Err: err}
	}
	if err := json.Unmarshal(data, target); err != nil {
		return &PersistenceError{Op: "decode " + name, Err: err}
	}
	return nil
}

// saveLocked 保存三件工件：逐件写临时文件后原子改名。
// 工件之间不构成跨文件事务，崩溃后重启时按下一次保存补齐，属已记录的限制
func (s *ModelStore) saveLocked() error {
	if s.triple == nil {
		return &ModelNotTrainedError{}
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &PersistenceError{Op: "mkdir", Err: err}
	}

	if err := s.writeArtifact(modelArtifact, s.triple.Classifier); err != nil {
		return err
	}
	if err := s.writeArtifact(scalerArtifact, s.triple.Scaler); err != nil {
		return err
	}
	if err := s.writeArtifact(columnsArtifact, s.triple.Contract); err != nil {
		return err
	}
	return nil
}

// writeArtifact 序列化单个工件并原子替换
func (s *ModelStore) writeArtifact(name string, source interface{}) error {
	data, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode " + name, Err: err}
	}

	target := filepath.Join(s.dir, name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, artifactFileMode); err != nil {
		return &PersistenceError{Op: "write " + name, Err: err}
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Op: "replace " + name, Err: err}
	}
	return nil
}

// EnsureLoaded 懒加载：内存中已有模型则直接返回，否则尝试加载工件
func (s *ModelStore) EnsureLoaded() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.triple != nil {
		return nil
	}
	return s.loadLocked()
}

// Loaded 返回内存中是否已有可用模型
func (s *ModelStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.triple != nil
}

// WithRead 在读锁下访问当前三元组，可与其他读操作并行。
// 仓库为空时先尝试懒加载，仍为空则返回ModelNotTrainedError
func (s *ModelStore) WithRead(fn func(*ModelTriple) error) error {
	s.mu.RLock()
	if s.triple == nil {
		s.mu.RUnlock()
		if err := s.EnsureLoaded(); err != nil {
			return &ModelNotTrainedError{}
		}
		s.mu.RLock()
	}
	defer s.mu.RUnlock()
	return fn(s.triple)
}

// WithWrite 在写锁下变更当前三元组并立即持久化，整体构成一个临界区。
// 变更函数出错时不持久化；持久化失败时内存态仍然生效并向调用方返回PersistenceError
func (s *ModelStore) WithWrite(fn func(*ModelTriple) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.triple == nil {
		if err := s.loadLocked(); err != nil {
			return &ModelNotTrainedError{}
		}
	}
	if err := fn(s.triple); err != nil {
		return err
	}
	return s.saveLocked()
}

// Replace 以新三元组整体替换当前模型并持久化，用于初始训练/重训练。
// 持久化失败时新模型仍在内存中生效，调用方会收到PersistenceError
func (s *ModelStore) Replace(triple *ModelTriple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triple = triple
	return s.saveLocked()
}

// Dir 返回工件目录
func (s *ModelStore) Dir() string {
	return s.dir
}
