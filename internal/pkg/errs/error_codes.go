/*
Package errs provides custom error types and application-level error code constants.

These error codes identify expected, recoverable rejections (bad parameters, policy
refusals, missing entities) both internally and in replies to clients. Invariant
violations inside the core are not represented here; they panic.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrUnsupportedMessage indicates an inbound WebSocket message of unknown type.
	ErrUnsupportedMessage = 1008
)

// 2xxx: Area Policy Errors
const (
	// ErrAreaTitleInvalid indicates that an area title is empty or malformed.
	ErrAreaTitleInvalid = 2101

	// ErrAreaExists indicates that an area with the requested title already exists.
	ErrAreaExists = 2102

	// ErrAreaNotFound indicates that the area does not exist.
	ErrAreaNotFound = 2103

	// ErrAreaFull indicates that the area has reached its occupant limit.
	ErrAreaFull = 2104

	// ErrAreaPassword indicates that the supplied area password is wrong.
	ErrAreaPassword = 2105

	// ErrGuestNotAllowed indicates that the area only admits registered users.
	ErrGuestNotAllowed = 2106

	// ErrAlreadyOccupying indicates that the user already occupies another area.
	ErrAlreadyOccupying = 2107

	// ErrAreaClosed indicates that the area closed before the operation completed.
	ErrAreaClosed = 2108

	// ErrNotOccupying indicates that the operation requires occupying an area.
	ErrNotOccupying = 2109

	// ErrObserveRejected indicates that the connection cannot observe the area.
	ErrObserveRejected = 2110

	// ErrMessageContentTooLong indicates that a chat message exceeded the length limit.
	ErrMessageContentTooLong = 2201
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrPowChallengeRequired indicates the client must complete a Proof-of-Work challenge first.
	ErrPowChallengeRequired = 3001

	// ErrPowChallengeInvalid indicates that the PoW proof provided by the client is invalid or incorrect.
	ErrPowChallengeInvalid = 3002

	// ErrPowChallengeDisabled indicates that the server does not require Proof-of-Work.
	ErrPowChallengeDisabled = 3003

	// ErrSessionKicked indicates that the connection was replaced by a newer one.
	ErrSessionKicked = 3004

	// ErrInvalidUsername indicates that a login name is malformed.
	ErrInvalidUsername = 3005

	// ErrInvalidCredentials indicates that a registered login failed.
	ErrInvalidCredentials = 3006

	// ErrRegisteredUnavailable indicates that registered logins are disabled.
	ErrRegisteredUnavailable = 3007

	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = 3008

	// ErrUsernameTaken indicates that registration chose an existing account name.
	ErrUsernameTaken = 3009

	// ErrInvalidPassword indicates a password outside the allowed length.
	ErrInvalidPassword = 3010
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
