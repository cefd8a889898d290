package middlewares

// gin context keys set by the middlewares in this package.
const (
	CtxRequestID = "request_id"
)
