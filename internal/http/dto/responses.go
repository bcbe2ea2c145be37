package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type CreateDealResponse struct {
	DealID string `json:"dealId"`
}

type CallableResult struct {
	Result any `json:"result"`
}

type CallableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type CallableErrorResponse struct {
	Error CallableError `json:"error"`
}
