package embedding

// TongyiEmbeddingRequest 通义千问嵌入API请求结构
type TongyiEmbeddingRequest struct {
	Model      string               `json:"model"`                // 模型名称
	Input      TongyiEmbeddingInput `json:"input"`                // 输入内容
	Parameters *TongyiParameters    `json:"parameters,omitempty"` // 可选参数
}

// TongyiEmbeddingInput 嵌入输入内容
type TongyiEmbeddingInput struct {
	Texts []string `json:"texts"` // 需要嵌入的文本列表
}

// TongyiParameters 嵌入请求参数
type TongyiParameters struct {
	Dimension int `json:"dimension,omitempty"` // 输出向量维度
}

// TongyiEmbeddingResponse 通义千问嵌入API响应结构
type TongyiEmbeddingResponse struct {
	Code      string       `json:"code"`       // 错误码，空表示成功
	Message   string       `json:"message"`    // 响应消息
	RequestID string       `json:"request_id"` // 请求ID
	Output    TongyiOutput `json:"output"`     // 输出结果
	Usage     TongyiUsage  `json:"usage"`      // 资源使用情况
}

// TongyiOutput 嵌入输出结果
type TongyiOutput struct {
	Embeddings []TongyiEmbedding `json:"embeddings"` // 嵌入向量列表
}

// TongyiEmbedding 单条嵌入结果
type TongyiEmbedding struct {
	TextIndex int       `json:"text_index"` // 对应输入文本的序号
	Embedding []float32 `json:"embedding"`  // 嵌入向量
}

// TongyiUsage 资源使用情况
type TongyiUsage struct {
	TotalTokens int `json:"total_tokens"` // 使用的总token数
}
