package errors

// ErrorKind classifies a delivery failure. Kinds decide retry behaviour:
// transient kinds go back through the retry manager, everything else is final
// for the affected attempt.
type ErrorKind string

const (
	KindNone ErrorKind = ""

	// Template failures, permanent for the attempt.
	KindTemplateParameterMissing  ErrorKind = "template_parameter_missing"
	KindTemplateChannelUnsupported ErrorKind = "template_channel_unsupported"

	// Adapter outcomes.
	KindProviderTimeout   ErrorKind = "provider_timeout"
	KindProviderThrottled ErrorKind = "provider_throttled"
	KindProviderError     ErrorKind = "provider_error"      // 5xx-class, transient
	KindProviderAuth      ErrorKind = "provider_auth"       // permanent
	KindEndpointInvalid   ErrorKind = "endpoint_invalid"    // permanent
	KindPayloadRejected   ErrorKind = "payload_rejected"    // permanent
	KindRecipientBlocked  ErrorKind = "recipient_blocked"   // permanent
	KindEndpointMissing   ErrorKind = "endpoint_missing"    // recipient has no endpoint for the channel

	// Pipeline outcomes.
	KindBudgetExhausted ErrorKind = "budget_exhausted"
	KindTTLExceeded     ErrorKind = "ttl_exceeded"
	KindCancelled       ErrorKind = "cancelled"
	KindShutdown        ErrorKind = "shutdown"
	KindOptedOut        ErrorKind = "opted_out"
	KindQuietHours      ErrorKind = "quiet_hours"
	KindInternal        ErrorKind = "internal"
)

// IsTransient reports whether the kind may be retried within budget.
func (k ErrorKind) IsTransient() bool {
	switch k {
	case KindProviderTimeout, KindProviderThrottled, KindProviderError, KindShutdown:
		return true
	default:
		return false
	}
}

// DeliveryError carries a classified failure through the pipeline.
type DeliveryError struct {
	Kind ErrorKind
	Err  error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Classified wraps err with a kind. A nil err still produces a DeliveryError
// so callers can persist the kind alone.
func Classified(kind ErrorKind, err error) *DeliveryError {
	return &DeliveryError{Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from err, or KindInternal for unclassified errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if de, ok := err.(*DeliveryError); ok {
		return de.Kind
	}
	return KindInternal
}
