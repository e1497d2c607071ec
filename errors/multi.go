package errors

import (
	"fmt"
	"strings"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// If given error implements unpacker interface, it is flattened and all
// represented errors are directly included into the result set.
func Append(errs ...error) error {
	var res multiError
	for _, e := range errs {
		if isNilErr(e) {
			continue
		}
		if u, ok := e.(unpacker); ok {
			res = append(res, u.Unpack()...)
		} else {
			res = append(res, e)
		}
	}

	switch len(res) {
	case 0:
		return nil
	case 1:
		return res[0]
	default:
		return res
	}
}

type multiError []error

var _ unpacker = (multiError)(nil)
var _ coder = (multiError)(nil)

// Unpack implements the unpacker interface.
func (e multiError) Unpack() []error {
	return e
}

// ABCICode returns the code of the first represented error, consistent with
// the fail-fast approach.
func (e multiError) ABCICode() uint32 {
	if len(e) == 0 {
		// An empty multi error must never be returned to the caller.
		return ErrHuman.ABCICode()
	}
	if c, ok := e[0].(coder); ok {
		return c.ABCICode()
	}
	return 1
}

func (e multiError) Error() string {
	switch len(e) {
	case 0:
		return "<nil>"
	case 1:
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = fmt.Sprintf("* %s", err)
	}
	return fmt.Sprintf("%d errors occurred:\n\t%s", len(e), strings.Join(msgs, "\n\t"))
}

// unpacker is an interface implemented by errors that represent a collection
// of other errors.
type unpacker interface {
	Unpack() []error
}
