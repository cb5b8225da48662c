package catalog

// # Error Codes Reference
//
// Codes are quoted by operators and API clients when reporting problems.
//
//	CAT001 - No products matched the query
//	CAT002 - Invalid list parameters
//	ING001 - A row has no SKU value
//	ING002 - A field value could not be parsed (usually price_cents)
//	ING003 - The catalog document could not be downloaded
//	ING004 - Another ingestion run is in progress
//	DB001  - Duplicate SKU inside one batch or against a concurrent writer
//	DB002  - Database unreachable
//	DB003  - Connection interrupted
//	DB004  - Timeout
//	DB005  - Deadlock or serialization failure
//	REQ001 - Request cancelled
//	RATE001 - Too many requests
//	ERR000 - Anything else; check the logs for the technical error
//
// Typed errors are matched first. String patterns are matched
// case-insensitively and the first match wins, so specific patterns come
// before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgNotFound = UserMessage{
		Message: "No products found",
		Action:  "Check the producer name or request an earlier page",
		Code:    "CAT001",
	}
	msgInvalidQuery = UserMessage{
		Message: "Invalid list parameters",
		Action:  "Use skip >= 0 and a limit between 1 and the configured maximum",
		Code:    "CAT002",
	}
	msgMissingKey = UserMessage{
		Message: "A catalog row has no SKU",
		Action:  "Fill in the \"sku (unique id)\" column for every row",
		Code:    "ING001",
	}
	msgParse = UserMessage{
		Message: "A catalog value could not be read",
		Action:  "Check the file encoding and that price cents holds whole numbers",
		Code:    "ING002",
	}
	msgFetch = UserMessage{
		Message: "The catalog file could not be downloaded",
		Action:  "Verify the share link is public and try again",
		Code:    "ING003",
	}
)

var errorPatterns = []errorPattern{
	{
		pattern: "run in progress",
		msg: UserMessage{
			Message: "An ingestion run is already in progress",
			Action:  "Wait for the current run to finish",
			Code:    "ING004",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A product with this SKU already exists",
			Action:  "Remove duplicate SKUs from the catalog file",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "A product with this SKU already exists",
			Action:  "Remove duplicate SKUs from the catalog file",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later",
			Code:    "DB004",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "could not serialize",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error into a user-friendly message with an error code.
// Returns an empty UserMessage for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		missing *MissingKeyError
		parse   *ParseError
		fetch   *FetchError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		return msgNotFound
	case errors.Is(err, ErrInvalidQuery):
		return msgInvalidQuery
	case errors.As(err, &missing):
		return msgMissingKey
	case errors.As(err, &parse):
		return msgParse
	case errors.As(err, &fetch):
		return msgFetch
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders MapError as a single line for logs and CLIs.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
