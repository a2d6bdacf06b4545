package gemini

// GenerationConfig параметры генерации ответа модели
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// Part фрагмент содержимого
type Part struct {
	Text string `json:"text"`
}

// Content содержимое запроса или кандидата ответа
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerateRequest тело запроса generateContent
type GenerateRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// Candidate вариант ответа модели
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// GenerateResponse ответ generateContent
type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// APIError тело ошибки API
type APIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
