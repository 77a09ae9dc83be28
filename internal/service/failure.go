package service

import (
	"errors"

	domainerrors "github.com/libraryapp/library-server/internal/errors"
	"github.com/libraryapp/library-server/internal/store"
)

// Extension keys attached to wrapped write failures.
const (
	extInvalidArgs  = "invalidArgs"
	extErrorMessage = "errorMessage"
)

// reason extracts the client-facing part of err: the message of a coded
// domain or store error, or the full text otherwise.
func reason(err error) string {
	var de *domainerrors.Error
	if errors.As(err, &de) {
		return de.Message
	}
	var se *store.Error
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

// writeFailure wraps err as a code error whose message is prefix followed
// by the reason, carrying the supplied argument names and the raw reason.
func writeFailure(code domainerrors.Code, prefix string, err error, args []string) *domainerrors.Error {
	msg := reason(err)
	if args == nil {
		args = []string{}
	}
	return domainerrors.Wrap(err, code, prefix+msg).
		WithExtension(extInvalidArgs, args).
		WithExtension(extErrorMessage, msg)
}
