// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"

	// 工作流输入错误
	ErrorInvalidIdea     = "INVALID_IDEA"
	ErrorUnknownPlatform = "UNKNOWN_PLATFORM"
	ErrorNoDraft         = "NO_DRAFT"
	ErrorRenderFailed    = "RENDER_FAILED"
)
