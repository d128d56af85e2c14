package classifier

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Sample 一条训练样本
type Sample struct {
	Text     string // 工单文本（主题+正文）
	Category string // 人工标注的类别
}

// TrainConfig 训练配置
type TrainConfig struct {
	Alpha float64 // 朴素贝叶斯平滑系数
	MinDF int     // 词条的最小文档频率
	Seed  int64   // 交叉验证的随机种子
}

// DefaultTrainConfig 返回默认训练配置
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Alpha: 1.0,
		MinDF: 1,
		Seed:  42,
	}
}

// Train 在全量样本上训练TF-IDF+朴素贝叶斯模型
func Train(samples []Sample, cfg TrainConfig) (*ModelArtifact, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no training samples provided")
	}

	// 1. 构建词表和文档频率
	vocabulary, docFreq := buildVocabulary(samples, cfg.MinDF)
	if len(vocabulary) == 0 {
		return nil, ErrEmptyVocabulary
	}

	// 2. 计算平滑的IDF权重
	idf := make([]float64, len(vocabulary))
	n := float64(len(samples))
	for token, idx := range vocabulary {
		idf[idx] = math.Log((1+n)/(1+float64(docFreq[token]))) + 1
	}

	// 3. 收集类别标签，保持确定性的字典序
	classSet := make(map[string]bool)
	for _, s := range samples {
		classSet[s.Category] = true
	}
	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}

	// 4. 累加各类别下的TF-IDF特征权重
	classCounts := make([]float64, len(classes))
	featureSums := make([][]float64, len(classes))
	for i := range featureSums {
		featureSums[i] = make([]float64, len(vocabulary))
	}

	artifact := &ModelArtifact{
		Version:    TrainedModelVersion,
		Vocabulary: vocabulary,
		IDF:        idf,
	}
	scratch := &TrainedClassifier{artifact: artifact}

	for _, s := range samples {
		ci := classIndex[s.Category]
		classCounts[ci]++
		for idx, weight := range scratch.vectorize(s.Text) {
			featureSums[ci][idx] += weight
		}
	}

	// 5. 计算对数先验和带平滑的对数似然
	classLogPrior := make([]float64, len(classes))
	featureLogProb := make([][]float64, len(classes))
	vocabSize := float64(len(vocabulary))
	for ci := range classes {
		classLogPrior[ci] = math.Log(classCounts[ci] / n)

		var total float64
		for _, w := range featureSums[ci] {
			total += w
		}

		featureLogProb[ci] = make([]float64, len(vocabulary))
		for fi, w := range featureSums[ci] {
			featureLogProb[ci][fi] = math.Log((w + cfg.Alpha) / (total + cfg.Alpha*vocabSize))
		}
	}

	artifact.Classes = classes
	artifact.ClassLogPrior = classLogPrior
	artifact.FeatureLogProb = featureLogProb
	return artifact, nil
}

// buildVocabulary 从样本构建词表并统计文档频率
func buildVocabulary(samples []Sample, minDF int) (map[string]int, map[string]int) {
	docFreq := make(map[string]int)
	for _, s := range samples {
		seen := make(map[string]bool)
		for _, token := range Tokenize(s.Text) {
			if !seen[token] {
				seen[token] = true
				docFreq[token]++
			}
		}
	}

	// 剔除低频词，并按字典序分配索引保证可复现
	tokens := make([]string, 0, len(docFreq))
	for token, df := range docFreq {
		if df >= minDF {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)

	vocabulary := make(map[string]int, len(tokens))
	for i, token := range tokens {
		vocabulary[token] = i
	}
	return vocabulary, docFreq
}

// Metrics 交叉验证的评估指标
type Metrics struct {
	NSamples   int                `json:"n_samples"`    // 样本总数
	NSplits    int                `json:"n_splits"`     // 交叉验证折数
	Accuracy   float64            `json:"accuracy"`     // 整体准确率
	MacroF1    float64            `json:"macro_f1"`     // 宏平均F1
	WeightedF1 float64            `json:"weighted_f1"`  // 加权平均F1
	PerClassF1 map[string]float64 `json:"per_class_f1"` // 各类别F1
}

// CrossValidate 分层K折交叉验证
// 小数据集自动降为3折，返回聚合后的评估指标
func CrossValidate(samples []Sample, cfg TrainConfig) (*Metrics, error) {
	if len(samples) < 6 {
		return nil, fmt.Errorf("need at least 6 samples for cross-validation, got %d", len(samples))
	}

	nSplits := 5
	if len(samples) < 40 {
		nSplits = 3
	}

	folds := stratifiedFolds(samples, nSplits, cfg.Seed)

	predicted := make([]string, len(samples))
	for fi := 0; fi < nSplits; fi++ {
		var train []Sample
		for fj, fold := range folds {
			if fj != fi {
				for _, idx := range fold {
					train = append(train, samples[idx])
				}
			}
		}

		artifact, err := Train(train, cfg)
		if err != nil {
			return nil, fmt.Errorf("fold %d training failed: %w", fi, err)
		}
		model := &TrainedClassifier{artifact: artifact}

		for _, idx := range folds[fi] {
			label, _, err := model.Predict(samples[idx].Text)
			if err != nil {
				return nil, err
			}
			predicted[idx] = label
		}
	}

	return computeMetrics(samples, predicted, nSplits), nil
}

// stratifiedFolds 按类别分层划分样本索引
func stratifiedFolds(samples []Sample, nSplits int, seed int64) [][]int {
	byClass := make(map[string][]int)
	for i, s := range samples {
		byClass[s.Category] = append(byClass[s.Category], i)
	}

	// 类别按字典序处理，打乱在类别内进行
	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	rng := rand.New(rand.NewSource(seed))
	folds := make([][]int, nSplits)
	for _, c := range classes {
		indices := byClass[c]
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		for i, idx := range indices {
			fi := i % nSplits
			folds[fi] = append(folds[fi], idx)
		}
	}
	return folds
}

// computeMetrics 根据真实标签和预测标签计算指标
func computeMetrics(samples []Sample, predicted []string, nSplits int) *Metrics {
	type counts struct {
		tp, fp, fn, support int
	}
	byClass := make(map[string]*counts)
	ensure := func(c string) *counts {
		if _, ok := byClass[c]; !ok {
			byClass[c] = &counts{}
		}
		return byClass[c]
	}

	correct := 0
	for i, s := range samples {
		ensure(s.Category).support++
		if predicted[i] == s.Category {
			correct++
			ensure(s.Category).tp++
		} else {
			ensure(s.Category).fn++
			ensure(predicted[i]).fp++
		}
	}

	perClassF1 := make(map[string]float64, len(byClass))
	var macroSum, weightedSum float64
	total := 0
	supported := 0
	for c, cc := range byClass {
		var precision, recall, f1 float64
		if cc.tp+cc.fp > 0 {
			precision = float64(cc.tp) / float64(cc.tp+cc.fp)
		}
		if cc.tp+cc.fn > 0 {
			recall = float64(cc.tp) / float64(cc.tp+cc.fn)
		}
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		perClassF1[c] = f1
		if cc.support > 0 {
			macroSum += f1
			weightedSum += f1 * float64(cc.support)
			total += cc.support
			supported++
		}
	}

	metrics := &Metrics{
		NSamples:   len(samples),
		NSplits:    nSplits,
		Accuracy:   float64(correct) / float64(len(samples)),
		PerClassF1: perClassF1,
	}
	if supported > 0 {
		metrics.MacroF1 = macroSum / float64(supported)
	}
	if total > 0 {
		metrics.WeightedF1 = weightedSum / float64(total)
	}
	return metrics
}
