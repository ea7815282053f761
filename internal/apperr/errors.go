// Package apperr holds the error kinds every storefront operation reports.
//
// Operations return these (possibly wrapped); callers branch with errors.As and
// turn them into display text with Message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const (
	MsgSubmitFailed = "order could not be submitted, please try again"
	MsgCollaborator = "the store service rejected the request"
	MsgNetwork      = "could not reach the store service, check your connection"
)

// ValidationError is malformed local input. It is never sent to the API.
type ValidationError struct {
	Message string
	Fields  map[string]string // field -> failed rule
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError is an integration defect of the calling page, not a user mistake.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Message }

// CollaboratorError is a non-2xx answer from the store API.
type CollaboratorError struct {
	StatusCode int
	Detail     string
}

func (e *CollaboratorError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Detail)
}

// NetworkError means no response arrived at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// ConflictError reports an entity that already exists (duplicate import).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Message }

// IsConflict also accepts a 409 from the API.
func IsConflict(err error) bool {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return true
	}
	var coll *CollaboratorError
	return errors.As(err, &coll) && coll.StatusCode == http.StatusConflict
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// Message renders err for display. fallback replaces an empty collaborator detail;
// pass "" to use MsgCollaborator.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if fallback == "" {
		fallback = MsgCollaborator
	}
	var (
		ve   *ValidationError
		cfg  *ConfigurationError
		coll *CollaboratorError
		nw   *NetworkError
		cf   *ConflictError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &cfg):
		return cfg.Message
	case errors.As(err, &cf):
		return cf.Message
	case errors.As(err, &coll):
		if coll.Detail != "" {
			return coll.Detail
		}
		return fallback
	case errors.As(err, &nw):
		return MsgNetwork
	default:
		return fallback
	}
}
