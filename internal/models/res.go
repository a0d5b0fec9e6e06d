package models

type ApiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Total   int         `json:"total,omitempty"`
}

func SuccessResponse(data interface{}, message string) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// ErrorResponse carries a localized message and a stable code clients can
// switch on.
func ErrorResponse(code, message string) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   message,
		Code:    code,
	}
}

func ListResponse(data interface{}, total int) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Total:   total,
	}
}
