/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
event replies and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Message Business Logic Errors
	ErrEmptyMessage:   {Code: ErrEmptyMessage, Message: "Message text is required."},
	ErrMessageTooLong: {Code: ErrMessageTooLong, Message: "Message is too long."},

	// 3xxx: Identity and Session Errors
	ErrInvalidInviteCode: {Code: ErrInvalidInviteCode, Message: "邀請碼無效"},
	ErrNotAuthenticated:  {Code: ErrNotAuthenticated, Message: "Please log in first."},
	ErrNameReserved:      {Code: ErrNameReserved, Message: "This name is reserved."},
	ErrNameInvalid:       {Code: ErrNameInvalid, Message: "Invalid display name."},

	// 5xxx: Internal System Errors
	ErrUnknown:     {Code: ErrUnknown, Message: "登入失敗，請稍後再試", Status: http.StatusInternalServerError},
	ErrPersistence: {Code: ErrPersistence, Message: "Service temporarily unavailable. Please try again.", Status: http.StatusInternalServerError},
}
