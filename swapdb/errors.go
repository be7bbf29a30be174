package swapdb

import (
	goerrors "github.com/go-errors/errors"
)

// wrap captures a stack trace at the point a storage error first
// surfaces. Unlike the coordinator's retry/parse failures (which the
// actor itself classifies and acts on), a corrupt row or a migration
// gone wrong is the kind of Internal failure an operator debugs after
// the fact from a log line, so the trace is worth paying for here.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, 1)
}
