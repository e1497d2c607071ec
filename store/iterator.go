package store

import (
	"bytes"

	"github.com/onramp-one/ramp/errors"
)

// source marks where the current item comes from
type source int32

const (
	us source = iota
	parent
	both
	none
)

// itemIter combines cached btree items with the iterator of the backing
// store, taking into consideration overwrites and deletes that only exist in
// the cache.
type itemIter struct {
	items   []keyer
	parent  Iterator
	reverse bool

	// head of the parent iterator, loaded lazily
	parentKey   []byte
	parentValue []byte
	parentRead  bool
	parentDone  bool
}

var _ Iterator = (*itemIter)(nil)

func newItemIter(items []keyer, parent Iterator, reverse bool) *itemIter {
	return &itemIter{
		items:   items,
		parent:  parent,
		reverse: reverse,
	}
}

// Next returns the next key-value pair, merging cached writes with the
// backing store. Cached deletes shadow backing store entries.
func (i *itemIter) Next() ([]byte, []byte, error) {
	for {
		if err := i.loadParent(); err != nil {
			return nil, nil, err
		}

		switch i.firstKey() {
		case none:
			return nil, nil, errors.ErrIteratorDone
		case parent:
			key, value := i.parentKey, i.parentValue
			i.parentRead = false
			return key, value, nil
		case both:
			// cached write shadows the parent entry
			i.parentRead = false
			fallthrough
		case us:
			item := i.items[0]
			i.items = i.items[1:]
			if set, ok := item.(setItem); ok {
				return set.Key(), set.value, nil
			}
			// deleted item, skip and look further
		}
	}
}

// Release releases the backing store Iterator.
func (i *itemIter) Release() {
	i.parent.Release()
}

// loadParent ensures the head of the parent iterator is buffered.
func (i *itemIter) loadParent() error {
	if i.parentRead || i.parentDone {
		return nil
	}
	key, value, err := i.parent.Next()
	switch {
	case err == nil:
		i.parentKey, i.parentValue = key, value
		i.parentRead = true
		return nil
	case errors.ErrIteratorDone.Is(err):
		i.parentDone = true
		return nil
	default:
		return err
	}
}

// firstKey selects the iterator with the closest key, if any
func (i *itemIter) firstKey() source {
	hasParent := i.parentRead && !i.parentDone
	if len(i.items) == 0 {
		if !hasParent {
			return none
		}
		return parent
	}
	if !hasParent {
		return us
	}

	cmp := bytes.Compare(i.parentKey, i.items[0].Key())
	if i.reverse {
		cmp = -cmp
	}
	switch {
	case cmp < 0:
		return parent
	case cmp > 0:
		return us
	default:
		return both
	}
}
