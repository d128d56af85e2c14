package classifier

import "strings"

// RuleModelVersion 规则分类器的版本标识
const RuleModelVersion = "rules-v0"

// Rule 关键词规则
// 文本包含组内任意关键词即命中该规则
type Rule struct {
	Keywords   []string // 关键词组（小写）
	Category   Category // 命中后的类别
	Confidence float64  // 固定的校准置信度
}

// defaultRules 默认规则表
// 规则按顺序求值，首个命中生效：同时包含"vpn"和"outage"的
// 文本会被判为access，因为access组排在前面
var defaultRules = []Rule{
	{
		Keywords:   []string{"vpn", "login", "password", "account locked"},
		Category:   CategoryAccess,
		Confidence: 0.62,
	},
	{
		Keywords:   []string{"outage", "down", "critical", "cannot access"},
		Category:   CategoryIncident,
		Confidence: 0.66,
	},
	{
		Keywords:   []string{"invoice", "billing", "payment"},
		Category:   CategoryBilling,
		Confidence: 0.60,
	},
}

// fallbackConfidence 没有任何规则命中时的置信度
const fallbackConfidence = 0.55

// RuleClassifier 基于关键词规则的分类器
// 纯函数：相同输入永远产生相同输出，对任意文本都有结果
type RuleClassifier struct {
	rules []Rule
}

// NewRuleClassifier 创建规则分类器
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		rules: defaultRules,
	}
}

// Classify 对文本进行规则分类
// 大小写不敏感的子串匹配，按规则顺序首个命中生效
func (c *RuleClassifier) Classify(text string) ClassificationResult {
	lowered := strings.ToLower(text)

	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lowered, keyword) {
				return ClassificationResult{
					Category:     rule.Category,
					Priority:     PriorityForCategory(rule.Category),
					Confidence:   rule.Confidence,
					ModelVersion: RuleModelVersion,
				}
			}
		}
	}

	return ClassificationResult{
		Category:     CategoryGeneral,
		Priority:     PriorityForCategory(CategoryGeneral),
		Confidence:   fallbackConfidence,
		ModelVersion: RuleModelVersion,
	}
}
