package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainingSamples 覆盖四个类别的小型标注集
func trainingSamples() []Sample {
	return []Sample{
		{Text: "cannot login to vpn from home", Category: "access"},
		{Text: "password reset link expired", Category: "access"},
		{Text: "my account is locked after failed attempts", Category: "access"},
		{Text: "need access to the shared drive", Category: "access"},
		{Text: "production server is down", Category: "incident"},
		{Text: "critical outage affecting all customers", Category: "incident"},
		{Text: "website returns 500 errors since morning", Category: "incident"},
		{Text: "database crashed and service is unavailable", Category: "incident"},
		{Text: "invoice shows double charge this month", Category: "billing"},
		{Text: "question about my last payment", Category: "billing"},
		{Text: "need a refund for the annual subscription", Category: "billing"},
		{Text: "billing address needs to be updated", Category: "billing"},
		{Text: "how do I change my email signature", Category: "general"},
		{Text: "where can I find the office map", Category: "general"},
		{Text: "request for a new mouse", Category: "general"},
		{Text: "question about the holiday calendar", Category: "general"},
	}
}

func TestRuleClassifier(t *testing.T) {
	c := NewRuleClassifier()

	tests := []struct {
		name       string
		text       string
		category   Category
		priority   int
		confidence float64
	}{
		{
			name:       "access keyword",
			text:       "VPN login failing, cannot access email",
			category:   CategoryAccess,
			priority:   2,
			confidence: 0.62,
		},
		{
			name:       "incident keyword",
			text:       "The whole site is down, critical outage",
			category:   CategoryIncident,
			priority:   1,
			confidence: 0.66,
		},
		{
			name:       "billing keyword",
			text:       "My invoice has a wrong payment amount",
			category:   CategoryBilling,
			priority:   3,
			confidence: 0.60,
		},
		{
			name:       "no keyword falls back to general",
			text:       "Where is the coffee machine?",
			category:   CategoryGeneral,
			priority:   4,
			confidence: 0.55,
		},
		{
			name:       "empty text still classifies",
			text:       "",
			category:   CategoryGeneral,
			priority:   4,
			confidence: 0.55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Classify(tt.text)
			assert.Equal(t, tt.category, result.Category)
			assert.Equal(t, tt.priority, result.Priority)
			assert.InDelta(t, tt.confidence, result.Confidence, 0.001)
			assert.Equal(t, RuleModelVersion, result.ModelVersion)
		})
	}
}

// TestRuleOrder 同时命中多条规则时按规则顺序取第一条
func TestRuleOrder(t *testing.T) {
	c := NewRuleClassifier()

	result := c.Classify("vpn outage in the office")
	assert.Equal(t, CategoryAccess, result.Category)
}

// TestRuleClassifierDeterministic 相同输入永远产生相同输出
func TestRuleClassifierDeterministic(t *testing.T) {
	c := NewRuleClassifier()

	first := c.Classify("printer out of toner")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify("printer out of toner"))
	}
}

func TestPriorityForCategory(t *testing.T) {
	assert.Equal(t, 1, PriorityForCategory(CategoryIncident))
	assert.Equal(t, 2, PriorityForCategory(CategoryAccess))
	assert.Equal(t, 3, PriorityForCategory(CategoryBilling))
	assert.Equal(t, 4, PriorityForCategory(CategoryGeneral))
	assert.Equal(t, 4, PriorityForCategory(Category("unknown")))
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Reset my VPN password!")
	assert.Contains(t, tokens, "reset")
	assert.Contains(t, tokens, "vpn")
	assert.Contains(t, tokens, "password")
	// 二元词
	assert.Contains(t, tokens, "vpn password")
	assert.Empty(t, Tokenize(""))
}

func TestTrainAndPredict(t *testing.T) {
	artifact, err := Train(trainingSamples(), DefaultTrainConfig())
	require.NoError(t, err)
	assert.Equal(t, TrainedModelVersion, artifact.Version)
	assert.Equal(t, []string{"access", "billing", "general", "incident"}, artifact.Classes)

	model := &TrainedClassifier{artifact: artifact}

	label, confidence, err := model.Predict("cannot login, my vpn password expired")
	require.NoError(t, err)
	assert.Equal(t, "access", label)
	assert.Greater(t, confidence, 0.25)
	assert.LessOrEqual(t, confidence, 1.0)

	label, _, err = model.Predict("the server crashed, big outage")
	require.NoError(t, err)
	assert.Equal(t, "incident", label)
}

func TestTrainEmptySamples(t *testing.T) {
	_, err := Train(nil, DefaultTrainConfig())
	assert.Error(t, err)
}

func TestSaveAndLoadArtifact(t *testing.T) {
	artifact, err := Train(trainingSamples(), DefaultTrainConfig())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, SaveArtifact(artifact, path))

	loaded, err := LoadTrainedClassifier(path)
	require.NoError(t, err)
	assert.Equal(t, TrainedModelVersion, loaded.Version())

	// 重新加载后的预测结果一致
	model := &TrainedClassifier{artifact: artifact}
	wantLabel, wantConf, err := model.Predict("double charge on invoice")
	require.NoError(t, err)
	gotLabel, gotConf, err := loaded.Predict("double charge on invoice")
	require.NoError(t, err)
	assert.Equal(t, wantLabel, gotLabel)
	assert.InDelta(t, wantConf, gotConf, 1e-9)
}

func TestLoadMissingArtifact(t *testing.T) {
	_, err := LoadTrainedClassifier(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = LoadTrainedClassifier("")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestLoadCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadTrainedClassifier(path)
	assert.ErrorIs(t, err, ErrModelLoadFailure)
}

func TestCrossValidate(t *testing.T) {
	metrics, err := CrossValidate(trainingSamples(), DefaultTrainConfig())
	require.NoError(t, err)

	assert.Equal(t, 16, metrics.NSamples)
	assert.Equal(t, 3, metrics.NSplits)
	assert.GreaterOrEqual(t, metrics.Accuracy, 0.0)
	assert.LessOrEqual(t, metrics.Accuracy, 1.0)
	assert.Len(t, metrics.PerClassF1, 4)
}

func TestCrossValidateTooFewSamples(t *testing.T) {
	_, err := CrossValidate(trainingSamples()[:4], DefaultTrainConfig())
	assert.Error(t, err)
}

func TestRouterFallsBackToRules(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	router, err := NewRouter(filepath.Join(t.TempDir(), "missing.json"), logger)
	require.NoError(t, err)
	assert.Equal(t, RuleModelVersion, router.ModelVersion())

	result, err := router.Classify("VPN login failing", "cannot access email")
	require.NoError(t, err)
	assert.Equal(t, CategoryAccess, result.Category)
	assert.Equal(t, RuleModelVersion, result.ModelVersion)
}

func TestRouterUsesTrainedModel(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	artifact, err := Train(trainingSamples(), DefaultTrainConfig())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, SaveArtifact(artifact, path))

	router, err := NewRouter(path, logger)
	require.NoError(t, err)
	assert.Equal(t, TrainedModelVersion, router.ModelVersion())

	result, err := router.Classify("", "production server is down, outage for everyone")
	require.NoError(t, err)
	assert.Equal(t, CategoryIncident, result.Category)
	assert.Equal(t, 1, result.Priority)
	assert.Equal(t, TrainedModelVersion, result.ModelVersion)
}

// TestRouterRejectsCorruptModel 模型文件损坏必须在启动时报错而不是静默回退
func TestRouterRejectsCorruptModel(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	_, err := NewRouter(path, logger)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelLoadFailure)
}
