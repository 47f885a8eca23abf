package apperr

import "errors"

// Invalid is returned when the input fails domain validation.
var Invalid = errors.New("invalid input")

// InvalidTransition is returned when an order status change is not permitted
// by the lifecycle transition table. The order is left unchanged.
var InvalidTransition = errors.New("invalid status transition")

// NotFound indicates that the referenced order, courier or restaurant does not exist.
var NotFound = errors.New("not found")

// Conflict indicates a uniqueness or state conflict (HTTP 409).
var Conflict = errors.New("conflict")

// Unavailable indicates a store or transport failure. Event-driven callers
// return it to the transport for redelivery; direct commands surface it as a
// service error. It is never interpreted as "no match found".
var Unavailable = errors.New("infrastructure unavailable")
