package classifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Router 分类路由器
// 在训练模型和规则分类器之间做路径选择：
// 启动时模型文件可加载则整个进程生命周期都走训练路径，
// 否则每次调用都走规则路径。没有按请求的回退逻辑——
// 两条路径的置信度语义不同，静默混用会破坏model_version的含义。
type Router struct {
	trained *TrainedClassifier // 训练分类器，未加载时为nil
	rules   *RuleClassifier    // 规则分类器，总是可用
	logger  *logrus.Logger
}

// NewRouter 创建分类路由器
// 模型加载是一次性的显式启动步骤：文件缺失是正常的回退触发条件；
// 文件存在但不可读属于配置缺陷，直接返回ErrModelLoadFailure
func NewRouter(artifactPath string, logger *logrus.Logger) (*Router, error) {
	if logger == nil {
		logger = logrus.New()
	}

	router := &Router{
		rules:  NewRuleClassifier(),
		logger: logger,
	}

	trained, err := LoadTrainedClassifier(artifactPath)
	switch {
	case err == nil:
		router.trained = trained
		logger.WithFields(logrus.Fields{
			"artifact":      artifactPath,
			"model_version": trained.Version(),
		}).Info("Trained classifier loaded")
	case errors.Is(err, ErrModelNotFound):
		logger.WithField("artifact", artifactPath).
			Info("Trained classifier artifact not found, falling back to rules")
	default:
		return nil, err
	}

	return router, nil
}

// ModelVersion 返回当前进程所使用路径的版本标识
// 对给定的进程运行保持稳定
func (r *Router) ModelVersion() string {
	if r.trained != nil {
		return r.trained.Version()
	}
	return RuleModelVersion
}

// Classify 对工单进行分类
// 主题和正文以分隔符拼接后分类；规则路径对任意输入都有结果，
// 训练路径的运行期预测失败会作为该请求的错误上报
func (r *Router) Classify(subject, body string) (ClassificationResult, error) {
	text := strings.TrimSpace(subject + " " + body)

	if r.trained == nil {
		return r.rules.Classify(text), nil
	}

	label, confidence, err := r.trained.Predict(text)
	if err != nil {
		return ClassificationResult{}, fmt.Errorf("trained classifier prediction failed: %w", err)
	}

	category := Category(label)
	if !IsValidCategory(category) {
		return ClassificationResult{}, fmt.Errorf("trained classifier returned unknown category %q", label)
	}

	return ClassificationResult{
		Category:     category,
		Priority:     PriorityForCategory(category),
		Confidence:   confidence,
		ModelVersion: r.trained.Version(),
	}, nil
}
