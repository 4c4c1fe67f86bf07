package api_models

// Response codes used by every API endpoint.
const (
	CodeOK    = "000000"
	CodeError = "999999"
)

// Response is the envelope returned by all endpoints.
type Response struct {
	Code string      `json:"code"`
	Data interface{} `json:"data,omitempty"`
	Msg  string      `json:"msg,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data interface{}) Response {
	return Response{Code: CodeOK, Data: data}
}

// Fail wraps an error message in a failure envelope.
func Fail(msg string) Response {
	return Response{Code: CodeError, Msg: msg}
}
