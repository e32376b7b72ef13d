/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in event replies sent to connected clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request or event parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that an inbound frame or request body was not valid JSON.
	ErrInvalidJSONFormat = 1002

	// ErrRateLimitExceeded indicates that the connection rate from one IP has exceeded the set limit.
	ErrRateLimitExceeded = 1003
)

// 2xxx: Message Business Logic Errors
const (
	// ErrEmptyMessage indicates that a sendMessage event carried no text.
	ErrEmptyMessage = 2001

	// ErrMessageTooLong indicates that the message text exceeded the maximum length limit.
	ErrMessageTooLong = 2002
)

// 3xxx: Identity and Session Errors
const (
	// ErrInvalidInviteCode indicates that the invite code supplied at login does not belong to any user.
	ErrInvalidInviteCode = 3001

	// ErrNotAuthenticated indicates that an authenticated-only event was sent on an anonymous session.
	ErrNotAuthenticated = 3002

	// ErrNameReserved indicates an attempt to log in as the reserved system sender.
	ErrNameReserved = 3003

	// ErrNameInvalid indicates that the login name was missing or malformed.
	ErrNameInvalid = 3004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrPersistence indicates that the durable store was unreachable or rejected the operation.
	ErrPersistence = 5001
)
