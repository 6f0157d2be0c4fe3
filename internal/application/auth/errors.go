package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrFullnameRequired      = errors.New("Fullname is required")
	ErrInvalidEmail          = errors.New("Invalid Email")
	ErrWeakPassword          = errors.New("Password must be at least 8 characters with a letter, a number and a special character")
	ErrEmailTaken            = errors.New("An account with this email already exists")
	ErrIncorrectPassword     = errors.New("Incorrect Password")
	ErrNotAuthenticated      = errors.New("Not authenticated")
)
