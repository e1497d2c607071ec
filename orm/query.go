package orm

import (
	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
)

// queryPrefix returns all models with keys that begin with a given prefix.
func queryPrefix(db ramp.ReadOnlyKVStore, prefix []byte) ([]ramp.Model, error) {
	itr, err := db.Iterator(prefixRange(prefix))
	if err != nil {
		return nil, err
	}
	return consumeIterator(itr)
}

// consumeIterator reads all remaining data into a slice and releases the
// iterator.
func consumeIterator(itr ramp.Iterator) ([]ramp.Model, error) {
	defer itr.Release()

	var res []ramp.Model
	for {
		key, value, err := itr.Next()
		switch {
		case err == nil:
			res = append(res, ramp.Model{Key: key, Value: value})
		case errors.ErrIteratorDone.Is(err):
			return res, nil
		default:
			return nil, err
		}
	}
}

// prefixRange turns a prefix into (start, end) to create
// and iterator
func prefixRange(prefix []byte) ([]byte, []byte) {
	// special case: no prefix is whole range
	if len(prefix) == 0 {
		return nil, nil
	}

	// copy the prefix and update last byte
	end := make([]byte, len(prefix))
	copy(end, prefix)
	l := len(end) - 1
	end[l]++

	// wait, what if that overflowed?....
	for end[l] == 0 && l > 0 {
		l--
		end[l]++
	}

	// okay, funny guy, you gave us FFF, no end to this range...
	if l == 0 && end[0] == 0 {
		end = nil
	}
	return prefix, end
}
