package classifier

// Category 工单类别
type Category string

const (
	// CategoryAccess 账号/访问类工单
	CategoryAccess Category = "access"
	// CategoryIncident 故障/事故类工单
	CategoryIncident Category = "incident"
	// CategoryBilling 账单/支付类工单
	CategoryBilling Category = "billing"
	// CategoryGeneral 其他通用工单
	CategoryGeneral Category = "general"
)

// Categories 所有合法的工单类别
// 顺序与训练数据的标签集合保持一致
var Categories = []Category{
	CategoryAccess,
	CategoryIncident,
	CategoryBilling,
	CategoryGeneral,
}

// ClassificationResult 分类结果
// Priority始终由Category推导，不由模型直接预测
type ClassificationResult struct {
	Category     Category `json:"category"`      // 工单类别
	Priority     int      `json:"priority"`      // 优先级(1-4，1最高)
	Confidence   float64  `json:"confidence"`    // 置信度(0-1)
	ModelVersion string   `json:"model_version"` // 产生结果的模型版本标识
}

// PriorityForCategory 根据类别推导优先级
// incident=1, access=2, billing=3, general=4
func PriorityForCategory(category Category) int {
	switch category {
	case CategoryIncident:
		return 1
	case CategoryAccess:
		return 2
	case CategoryBilling:
		return 3
	default:
		return 4
	}
}

// IsValidCategory 检查类别是否合法
func IsValidCategory(category Category) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
