package httpx

import "net/http"

// Machine readable error kinds surfaced in failure bodies.
const (
	KindValidation          = "VALIDATION_ERROR"
	KindNotFound            = "NOT_FOUND"
	KindBatchNotFound       = "BATCH_NOT_FOUND"
	KindOrderNotFound       = "ORDER_NOT_FOUND"
	KindInsufficientStock   = "INSUFFICIENT_STOCK"
	KindBatchInUse          = "BATCH_IN_USE"
	KindDuplicate           = "DUPLICATE"
	KindOrderLocked         = "ORDER_LOCKED"
	KindAlreadyExecuted     = "ALREADY_EXECUTED"
	KindInvalidPeriod       = "INVALID_PERIOD"
	KindConcurrencyConflict = "CONCURRENCY_CONFLICT"
	KindInternal            = "INTERNAL"
)

// Internal reports an unexpected failure without leaking details to the caller.
func Internal(w http.ResponseWriter) {
	Fail(w, http.StatusInternalServerError, KindInternal, "unexpected error")
}
