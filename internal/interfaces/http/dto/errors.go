package dto

import "net/http"

// Error code constants returned in ErrorInfo.Code
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidXML is used when an inbound document cannot be decoded
	ErrCodeInvalidXML = "ERR_INVALID_XML"
	// ErrCodeInvalidInput is used for invalid query or body parameters
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Message processing error codes
const (
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeInvalidUnit         = "ERR_INVALID_UNIT"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAuthorityNotFound   = "ERR_AUTHORITY_NOT_FOUND"
	ErrCodeLocationNotFound    = "ERR_LOCATION_NOT_FOUND"
	ErrCodeOrderNotFound       = "ERR_ORDER_NOT_FOUND"
	ErrCodeSellerNotFound      = "ERR_SELLER_NOT_FOUND"
	ErrCodeMaterialNotFound    = "ERR_MATERIAL_NOT_FOUND"
	ErrCodeDuplicateIdentifier = "ERR_DUPLICATE_IDENTIFIER"
	ErrCodeDuplicateMessage    = "ERR_DUPLICATE_MESSAGE"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodePersistence         = "ERR_PERSISTENCE"
	ErrCodeTransport           = "ERR_TRANSPORT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Request errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidXML:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// A message the partner must fix before resending -> 400
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeInvalidUnit: http.StatusBadRequest,

	// Resolution failures -> 404 Not Found
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeAuthorityNotFound: http.StatusNotFound,
	ErrCodeLocationNotFound:  http.StatusNotFound,
	ErrCodeOrderNotFound:     http.StatusNotFound,
	ErrCodeSellerNotFound:    http.StatusNotFound,
	ErrCodeMaterialNotFound:  http.StatusNotFound,

	// Conflicts -> 409 Conflict
	ErrCodeDuplicateIdentifier: http.StatusConflict,
	ErrCodeDuplicateMessage:    http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodePersistence:  http.StatusInternalServerError,
	ErrCodeTransport:    http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"INVALID_UNIT":         ErrCodeInvalidUnit,
	"AUTHORITY_NOT_FOUND":  ErrCodeAuthorityNotFound,
	"LOCATION_NOT_FOUND":   ErrCodeLocationNotFound,
	"ORDER_NOT_FOUND":      ErrCodeOrderNotFound,
	"SELLER_NOT_FOUND":     ErrCodeSellerNotFound,
	"MATERIAL_NOT_FOUND":   ErrCodeMaterialNotFound,
	"DUPLICATE_IDENTIFIER": ErrCodeDuplicateIdentifier,
	"DUPLICATE_MESSAGE":    ErrCodeDuplicateMessage,
	"PERSISTENCE_ERROR":    ErrCodePersistence,
	"TRANSPORT_ERROR":      ErrCodeTransport,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format or unknown are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
