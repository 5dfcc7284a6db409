package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not verified")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrTaskNotFound       = errors.New("task not found")
	ErrExamNotFound       = errors.New("exam result not found")
	ErrTasksPending       = errors.New("unfinished tasks pending")
	ErrPersistence        = errors.New("persistence failure")
	ErrInvalidImage       = errors.New("invalid image upload")
	ErrAIUnavailable      = errors.New("ai provider not configured")
	ErrMailNotConfigured  = errors.New("mail credentials not configured")
	ErrEmptyTaskContent   = errors.New("task content is empty")
	ErrEmptyQuestion      = errors.New("question is empty")
)
