package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition is a business error code with its default message.
type Definition struct {
	Code    string
	Message string
}

// Ingress validation errors.
var (
	InvalidRequest        = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	UnknownKind           = Definition{Code: "UNKNOWN_KIND", Message: "Unknown notification kind"}
	UnknownTemplate       = Definition{Code: "UNKNOWN_TEMPLATE", Message: "Unknown template"}
	UnknownChannel        = Definition{Code: "UNKNOWN_CHANNEL", Message: "Unknown channel"}
	InvalidTarget         = Definition{Code: "INVALID_TARGET", Message: "Invalid target"}
	InvalidTTL            = Definition{Code: "INVALID_TTL", Message: "TTL out of bounds"}
	PayloadTooLarge       = Definition{Code: "PAYLOAD_TOO_LARGE", Message: "Payload exceeds size limit"}
	NotificationNotFound  = Definition{Code: "NOTIFICATION_NOT_FOUND", Message: "Notification not found"}
	NotificationRateLimit = Definition{Code: "RATE_LIMITED", Message: "Too many requests"}
)

// Authorization errors.
var (
	Unauthorized         = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	TenantMismatch       = Definition{Code: "TENANT_MISMATCH", Message: "Caller cannot act for this tenant"}
	TenantScopeViolation = Definition{Code: "TENANT_SCOPE_VIOLATION", Message: "Target crosses tenant boundary"}
)

// Pipeline errors surfaced through the API.
var (
	DuplicateRequest = Definition{Code: "DUPLICATE_REQUEST", Message: "Duplicate dedup key"}
	DependencyDown   = Definition{Code: "DEPENDENCY_DOWN", Message: "A required dependency is unavailable"}
)

// Lookup maps error codes back to their definitions.
var Lookup = map[string]Definition{
	InvalidRequest.Code:        InvalidRequest,
	UnknownKind.Code:           UnknownKind,
	UnknownTemplate.Code:       UnknownTemplate,
	UnknownChannel.Code:        UnknownChannel,
	InvalidTarget.Code:         InvalidTarget,
	InvalidTTL.Code:            InvalidTTL,
	PayloadTooLarge.Code:       PayloadTooLarge,
	NotificationNotFound.Code:  NotificationNotFound,
	NotificationRateLimit.Code: NotificationRateLimit,
	Unauthorized.Code:          Unauthorized,
	TenantMismatch.Code:        TenantMismatch,
	TenantScopeViolation.Code:  TenantScopeViolation,
	DuplicateRequest.Code:      DuplicateRequest,
	DependencyDown.Code:        DependencyDown,
}

// Get returns the Definition for a code, or a generic one when unknown.
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
