package service

import "errors"

// Error kinds. Every *Error unwraps to one of these.
var (
	ErrInvalid      = errors.New("invalid request")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error codes returned to clients.
const (
	CodeMissingFields          = "MISSING_FIELDS"
	CodeMissingParams          = "MISSING_PARAMS"
	CodeInvalidEmail           = "INVALID_EMAIL"
	CodeInvalidPhone           = "INVALID_PHONE"
	CodeInvalidServiceType     = "INVALID_SERVICE_TYPE"
	CodeStateRequired          = "STATE_REQUIRED"
	CodeDuplicateRequest       = "DUPLICATE_REQUEST"
	CodeOrderNotFound          = "ORDER_NOT_FOUND"
	CodeInvalidStatus          = "INVALID_STATUS"
	CodeInvalidPaymentStatus   = "INVALID_PAYMENT_STATUS"
	CodeInvalidDate            = "INVALID_DATE"
	CodePlanNotFound           = "PLAN_NOT_FOUND"
	CodeDuplicatePlanID        = "DUPLICATE_PLAN_ID"
	CodeTemplateNotFound       = "TEMPLATE_NOT_FOUND"
	CodeDuplicateTemplateName  = "DUPLICATE_TEMPLATE_NAME"
	CodeMissingTemplateName    = "MISSING_TEMPLATE_NAME"
	CodeMissingTemplateSubject = "MISSING_TEMPLATE_SUBJECT"
	CodeMissingTemplateContent = "MISSING_TEMPLATE_CONTENT"
	CodeMissingUsername        = "MISSING_USERNAME"
	CodeMissingPassword        = "MISSING_PASSWORD"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeNoToken                = "NO_TOKEN"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeMissingCurrentPassword = "MISSING_CURRENT_PASSWORD"
	CodeMissingNewPassword     = "MISSING_NEW_PASSWORD"
	CodePasswordTooShort       = "PASSWORD_TOO_SHORT"
	CodeIncorrectPassword      = "INCORRECT_PASSWORD"
)

// Error is a business rule violation with a stable client code.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap returns the kind.
func (e *Error) Unwrap() error { return e.Kind }

func invalid(code, msg string) error  { return &Error{Kind: ErrInvalid, Code: code, Message: msg} }
func notFound(code, msg string) error { return &Error{Kind: ErrNotFound, Code: code, Message: msg} }
func unauthorized(code, msg string) error {
	return &Error{Kind: ErrUnauthorized, Code: code, Message: msg}
}
