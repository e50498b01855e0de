/*
Package errs provides the application error type and its business code constants.

The codes identify failures both inside the server and on the wire, where they are
sent to HTTP clients and to websocket connections as error frames.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained data after the JSON value.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the client exceeded its request budget.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Chat Event Errors
const (
	// ErrMalformedEvent indicates an inbound websocket event that cannot be routed:
	// bad JSON, no recipient, no content, or an unauthenticated sender.
	ErrMalformedEvent = 2001

	// ErrMessageTooLong indicates that the message text exceeded the maximum length.
	ErrMessageTooLong = 2201

	// ErrAttachmentTooLarge indicates that a decoded attachment exceeded the size limit.
	ErrAttachmentTooLarge = 2202

	// ErrAttachmentInvalid indicates an attachment that could not be decoded or named.
	ErrAttachmentInvalid = 2203

	// ErrAttachmentNotFound indicates a download request for an unknown attachment name.
	ErrAttachmentNotFound = 2204

	// ErrAlreadyAuthenticated indicates a second credential on a connection that already has an identity.
	ErrAlreadyAuthenticated = 2301
)

// 3xxx: Identity and Account Errors
const (
	// ErrInvalidCredential indicates a credential that failed verification.
	ErrInvalidCredential = 3001

	// ErrUnauthorized indicates a request that requires an identity but carried none.
	ErrUnauthorized = 3002

	// ErrInvalidUsername indicates a username that does not satisfy the account rules.
	ErrInvalidUsername = 3003

	// ErrInvalidPassword indicates a password that does not satisfy the account rules.
	ErrInvalidPassword = 3004

	// ErrUserAlreadyExists indicates a registration for a taken username.
	ErrUserAlreadyExists = 3005

	// ErrInvalidLogin indicates a wrong username or password on login.
	ErrInvalidLogin = 3006

	// ErrPowChallengeRequired indicates the client must complete a proof-of-work challenge first.
	ErrPowChallengeRequired = 3101

	// ErrPowChallengeInvalid indicates that the submitted proof-of-work is wrong or expired.
	ErrPowChallengeInvalid = 3102
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000

	// ErrStorage indicates that a durable store (messages, accounts, attachments) failed.
	ErrStorage = 5001
)
