package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Flash      []string    `json:"flash,omitempty"` // pending session messages, delivered once
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// WithFlash attaches flash messages to the response.
func (r Response) WithFlash(msgs []string) Response {
	r.Flash = msgs
	return r
}

// CartResponse is the envelope of every cart mutation.
type CartResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	CartCount int    `json:"cart_count"`
	CartTotal string `json:"cart_total,omitempty"`
}

func CartSuccess(message string, count int, total string) CartResponse {
	return CartResponse{Success: true, Message: message, CartCount: count, CartTotal: total}
}

func CartError(message string, count int) CartResponse {
	return CartResponse{Success: false, Message: message, CartCount: count}
}
