/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses, WebSocket error messages and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrUnsupportedMessage:   {Code: ErrUnsupportedMessage, Message: "Unsupported message type: %s."},

	// 2xxx: Area Policy Errors
	ErrAreaTitleInvalid:      {Code: ErrAreaTitleInvalid, Message: "Invalid area title."},
	ErrAreaExists:            {Code: ErrAreaExists, Message: "An area with this title already exists.", Status: http.StatusConflict},
	ErrAreaNotFound:          {Code: ErrAreaNotFound, Message: "Area not found.", Status: http.StatusNotFound},
	ErrAreaFull:              {Code: ErrAreaFull, Message: "This area is full."},
	ErrAreaPassword:          {Code: ErrAreaPassword, Message: "Wrong area password."},
	ErrGuestNotAllowed:       {Code: ErrGuestNotAllowed, Message: "Guests cannot join this area."},
	ErrAlreadyOccupying:      {Code: ErrAlreadyOccupying, Message: "You are already in another area."},
	ErrAreaClosed:            {Code: ErrAreaClosed, Message: "This area has closed."},
	ErrNotOccupying:          {Code: ErrNotOccupying, Message: "Join an area first."},
	ErrObserveRejected:       {Code: ErrObserveRejected, Message: "You cannot observe this area."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},

	// 3xxx: User, Session, and Security Errors
	ErrPowChallengeRequired:  {Code: ErrPowChallengeRequired, Message: "Verification required. Please try again."},
	ErrPowChallengeInvalid:   {Code: ErrPowChallengeInvalid, Message: "Verification failed. Please try again."},
	ErrPowChallengeDisabled:  {Code: ErrPowChallengeDisabled, Message: "Verification is not required."},
	ErrSessionKicked:         {Code: ErrSessionKicked, Message: "You were signed in on another device."},
	ErrInvalidUsername:       {Code: ErrInvalidUsername, Message: "Invalid username."},
	ErrInvalidCredentials:    {Code: ErrInvalidCredentials, Message: "Incorrect username or password.", Status: http.StatusUnauthorized},
	ErrRegisteredUnavailable: {Code: ErrRegisteredUnavailable, Message: "Registered sign-in is not available.", Status: http.StatusServiceUnavailable},
	ErrUnauthorized:          {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrUsernameTaken:         {Code: ErrUsernameTaken, Message: "This username is already taken.", Status: http.StatusConflict},
	ErrInvalidPassword:       {Code: ErrInvalidPassword, Message: "Password must be 6 to 50 characters."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
