package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// 常用错误定义
var (
	// ErrModelNotFound 模型文件不存在
	// 这不是配置缺陷，而是触发规则回退的正常状态
	ErrModelNotFound = errors.New("trained model artifact not found")
	// ErrModelLoadFailure 模型文件存在但无法读取或解析
	// 属于配置缺陷，必须上报，不允许静默回退到规则
	ErrModelLoadFailure = errors.New("trained model artifact is unreadable")
	// ErrEmptyVocabulary 模型词表为空
	ErrEmptyVocabulary = errors.New("model vocabulary is empty")
)

// TrainedModelVersion 训练模型的版本标识
const TrainedModelVersion = "tfidf-nb-v1"

// ModelArtifact 持久化的模型文件内容
// 包含TF-IDF向量化器和多项式朴素贝叶斯模型的全部参数
type ModelArtifact struct {
	Version        string         `json:"version"`          // 模型版本标识
	Vocabulary     map[string]int `json:"vocabulary"`       // 词条到特征索引的映射
	IDF            []float64      `json:"idf"`              // 逆文档频率权重
	Classes        []string       `json:"classes"`          // 类别标签集合
	ClassLogPrior  []float64      `json:"class_log_prior"`  // 类别先验的对数
	FeatureLogProb [][]float64    `json:"feature_log_prob"` // 各类别下特征的对数似然
}

// TrainedClassifier 加载后的训练分类器
// 一旦加载即为只读，可被任意数量的并发调用方使用
type TrainedClassifier struct {
	artifact *ModelArtifact
}

// LoadTrainedClassifier 从文件加载训练好的模型
// 文件不存在返回ErrModelNotFound，存在但无法解析返回ErrModelLoadFailure
func LoadTrainedClassifier(path string) (*TrainedClassifier, error) {
	if path == "" {
		return nil, ErrModelNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrModelLoadFailure, err)
	}

	var artifact ModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoadFailure, err)
	}

	if err := validateArtifact(&artifact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoadFailure, err)
	}

	return &TrainedClassifier{artifact: &artifact}, nil
}

// validateArtifact 校验模型文件的完整性
func validateArtifact(a *ModelArtifact) error {
	if len(a.Vocabulary) == 0 {
		return ErrEmptyVocabulary
	}
	if len(a.IDF) != len(a.Vocabulary) {
		return fmt.Errorf("idf length %d does not match vocabulary size %d", len(a.IDF), len(a.Vocabulary))
	}
	if len(a.Classes) == 0 {
		return fmt.Errorf("model has no classes")
	}
	if len(a.ClassLogPrior) != len(a.Classes) {
		return fmt.Errorf("class prior length %d does not match class count %d", len(a.ClassLogPrior), len(a.Classes))
	}
	if len(a.FeatureLogProb) != len(a.Classes) {
		return fmt.Errorf("feature likelihood rows %d do not match class count %d", len(a.FeatureLogProb), len(a.Classes))
	}
	for i, row := range a.FeatureLogProb {
		if len(row) != len(a.Vocabulary) {
			return fmt.Errorf("feature likelihood row %d has length %d, want %d", i, len(row), len(a.Vocabulary))
		}
	}
	return nil
}

// Version 返回模型版本标识
func (c *TrainedClassifier) Version() string {
	if c.artifact.Version != "" {
		return c.artifact.Version
	}
	return TrainedModelVersion
}

// Predict 预测文本的类别和置信度
// 置信度是标签集合上的最大后验概率，并非校准过的正确率
func (c *TrainedClassifier) Predict(text string) (string, float64, error) {
	features := c.vectorize(text)

	scores := make([]float64, len(c.artifact.Classes))
	for i := range c.artifact.Classes {
		score := c.artifact.ClassLogPrior[i]
		for idx, weight := range features {
			score += weight * c.artifact.FeatureLogProb[i][idx]
		}
		scores[i] = score
	}

	probs := softmax(scores)
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}

	return c.artifact.Classes[best], probs[best], nil
}

// vectorize 将文本转换为稀疏TF-IDF特征
func (c *TrainedClassifier) vectorize(text string) map[int]float64 {
	counts := make(map[int]float64)
	for _, token := range Tokenize(text) {
		if idx, ok := c.artifact.Vocabulary[token]; ok {
			counts[idx]++
		}
	}

	var norm float64
	for idx := range counts {
		counts[idx] *= c.artifact.IDF[idx]
		norm += counts[idx] * counts[idx]
	}

	// L2归一化
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range counts {
			counts[idx] /= norm
		}
	}

	return counts
}

// softmax 将对数得分转换为概率分布
func softmax(scores []float64) []float64 {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Tokenize 将文本切分为小写词条（一元词加二元词）
func Tokenize(text string) []string {
	words := splitWords(strings.ToLower(text))

	tokens := make([]string, 0, len(words)*2)
	tokens = append(tokens, words...)
	for i := 0; i+1 < len(words); i++ {
		tokens = append(tokens, words[i]+" "+words[i+1])
	}
	return tokens
}

// splitWords 按非字母数字字符切分单词
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// SaveArtifact 将模型文件写入磁盘
func SaveArtifact(artifact *ModelArtifact, path string) error {
	if err := validateArtifact(artifact); err != nil {
		return fmt.Errorf("refusing to save invalid artifact: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create model directory: %v", err)
		}
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact file: %v", err)
	}
	return nil
}
