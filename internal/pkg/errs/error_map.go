package errs

import "net/http"

// errorMap holds the template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Chat Event Errors
	ErrMalformedEvent:       {Code: ErrMalformedEvent, Message: "Message could not be sent."},
	ErrMessageTooLong:       {Code: ErrMessageTooLong, Message: "Message is too long."},
	ErrAttachmentTooLarge:   {Code: ErrAttachmentTooLarge, Message: "File is too large (max %d MB)."},
	ErrAttachmentInvalid:    {Code: ErrAttachmentInvalid, Message: "Invalid attachment."},
	ErrAttachmentNotFound:   {Code: ErrAttachmentNotFound, Message: "File not found.", Status: http.StatusNotFound},
	ErrAlreadyAuthenticated: {Code: ErrAlreadyAuthenticated, Message: "This connection is already signed in."},

	// 3xxx: Identity and Account Errors
	ErrInvalidCredential:    {Code: ErrInvalidCredential, Message: "Your session is invalid or expired.", Status: http.StatusUnauthorized},
	ErrUnauthorized:         {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrInvalidUsername:      {Code: ErrInvalidUsername, Message: "Invalid username.", Status: http.StatusBadRequest},
	ErrInvalidPassword:      {Code: ErrInvalidPassword, Message: "Invalid password.", Status: http.StatusBadRequest},
	ErrUserAlreadyExists:    {Code: ErrUserAlreadyExists, Message: "Username is already taken.", Status: http.StatusConflict},
	ErrInvalidLogin:         {Code: ErrInvalidLogin, Message: "Incorrect username or password.", Status: http.StatusUnauthorized},
	ErrPowChallengeRequired: {Code: ErrPowChallengeRequired, Message: "Verification required. Please try again.", Status: http.StatusForbidden},
	ErrPowChallengeInvalid:  {Code: ErrPowChallengeInvalid, Message: "Verification failed. Please try again.", Status: http.StatusForbidden},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStorage: {Code: ErrStorage, Message: "Storage is unavailable. Please try again.", Status: http.StatusServiceUnavailable},
}
