package utils

import (
	"errors"
)

// PermError is an error that should not be retried
type PermError string

func (e PermError) Error() string {
	return string(e)
}

func (e PermError) IsPermanent() bool {
	return true
}

// IsPermanent reports whether err, or anything it wraps, is a PermError
func IsPermanent(err error) bool {
	var perm interface{ IsPermanent() bool }
	return errors.As(err, &perm) && perm.IsPermanent()
}
