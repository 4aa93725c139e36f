package values

type contextKey string

const (
	Success        = "success"
	Created        = "created"
	Error          = "error"
	BadRequestBody = "bad_request_body"
	Unprocessable  = "unprocessable"
	NotAllowed     = "not_allowed"
	NotFound       = "not_found"
	NotAuthorised  = "not_authorised"
	TokenExpired   = "token_expired"
	UpstreamErr    = "upstream_error"
)

const (
	HeaderRequestSource = "X-Request-Source"
	HeaderRequestID     = "X-Request-ID"
)

const (
	ContextTracingKey   = contextKey("tracing")
	ContextUserIDKey    = contextKey("user_id")
	ContextAuthErrorKey = contextKey("auth_error")
	ContextSessionKey   = contextKey("session")
)

// DefaultRequestSource is used for browser page loads, which never set X-Request-Source.
const DefaultRequestSource = "web"

const (
	SessionCookie     = "session_id"
	AccessTokenCookie = "access_token"
)
