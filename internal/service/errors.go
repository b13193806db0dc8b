package service

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrFamilyNotFound      = errors.New("family not found")
	ErrMemberNotFound      = errors.New("family member not found")
	ErrJoinRequestNotFound = errors.New("join request not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrPageNotFound        = errors.New("invalid page")
	ErrExpenseNotFound     = errors.New("expense not found")
	ErrUdharNotFound       = errors.New("udhar not found")
	ErrAttendanceNotFound  = errors.New("attendance not found")
	ErrNoteNotFound        = errors.New("note not found")

	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
	ErrInvalidToken       = errors.New("token is invalid or expired")
)

// IsNotFound reports whether err is one of the not-found sentinels
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrUserNotFound, ErrFamilyNotFound, ErrMemberNotFound, ErrJoinRequestNotFound,
		ErrMessageNotFound, ErrPageNotFound, ErrExpenseNotFound, ErrUdharNotFound,
		ErrAttendanceNotFound, ErrNoteNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// DenialReason says why an action was refused
type DenialReason string

const (
	ReasonNotMember         DenialReason = "not_member"
	ReasonNotSender         DenialReason = "not_sender"
	ReasonMessageDeleted    DenialReason = "message_deleted"
	ReasonEditWindowExpired DenialReason = "edit_window_expired"
	ReasonNotOwner          DenialReason = "not_owner"
	ReasonNotCreator        DenialReason = "not_creator"
	ReasonLinkJoinDisabled  DenialReason = "link_join_disabled"
	ReasonPermissionDenied  DenialReason = "permission_denied"
)

// AuthorizationError is returned when the caller may not perform an action
type AuthorizationError struct {
	Reason DenialReason
	Detail string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func deny(reason DenialReason, detail string) error {
	return &AuthorizationError{Reason: reason, Detail: detail}
}

// AsAuthorizationError extracts an AuthorizationError from err
func AsAuthorizationError(err error) (*AuthorizationError, bool) {
	var ae *AuthorizationError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// RequestError is a request the service refuses for a reason that is not tied to one field
type RequestError struct {
	Detail string
	Code   string
}

func (e *RequestError) Error() string {
	return e.Detail
}

func badRequest(detail string) error {
	return &RequestError{Detail: detail}
}

// AsRequestError extracts a RequestError from err
func AsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
