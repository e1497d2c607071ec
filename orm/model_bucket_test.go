package orm

import (
	"encoding/json"
	"testing"

	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/ramptest/assert"
	"github.com/onramp-one/ramp/store"
)

// badge is a tiny model implementation for testing the bucket machinery.
type badge struct {
	Owner string `json:"owner"`
	Score int64  `json:"score"`
}

var _ Model = (*badge)(nil)

func (b *badge) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

func (b *badge) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, b)
}

func (b *badge) Validate() error {
	if b.Score < 0 {
		return errors.Wrap(errors.ErrState, "negative score")
	}
	return nil
}

func TestModelBucket(t *testing.T) {
	db := store.MemStore()

	b := NewModelBucket("bdgs", &badge{})

	key, err := b.Put(db, []byte("bob"), &badge{Owner: "bob", Score: 1})
	assert.Nil(t, err)
	assert.Equal(t, []byte("bob"), key)

	var res badge
	assert.Nil(t, b.One(db, []byte("bob"), &res))
	assert.Equal(t, badge{Owner: "bob", Score: 1}, res)

	assert.Nil(t, b.Delete(db, []byte("bob")))
	if err := b.Delete(db, []byte("bob")); !errors.ErrNotFound.Is(err) {
		t.Fatalf("unexpected error when deleting an entity that does not exist: %s", err)
	}
	if err := b.One(db, []byte("bob"), &res); !errors.ErrNotFound.Is(err) {
		t.Fatalf("unexpected error for an entity that does not exist: %s", err)
	}
}

func TestModelBucketPutSequence(t *testing.T) {
	db := store.MemStore()

	b := NewModelBucket("bdgs", &badge{}, WithIDSequence(NewSequence("bdgs", "id")))

	// Using a nil key means the sequence is used to generate one.
	key, err := b.Put(db, nil, &badge{Owner: "bob", Score: 1})
	assert.Nil(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, key)

	key, err = b.Put(db, nil, &badge{Owner: "alice", Score: 2})
	assert.Nil(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 2}, key)

	var res badge
	assert.Nil(t, b.One(db, []byte{0, 0, 0, 0, 0, 0, 0, 1}, &res))
	assert.Equal(t, badge{Owner: "bob", Score: 1}, res)
}

func TestModelBucketPutValidates(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("bdgs", &badge{})

	if _, err := b.Put(db, []byte("x"), &badge{Owner: "x", Score: -1}); !errors.ErrState.Is(err) {
		t.Fatalf("want a validation error, got %+v", err)
	}
}

func TestModelBucketByIndex(t *testing.T) {
	indexByOwner := func(obj Object) ([]byte, error) {
		bd, ok := obj.Value().(*badge)
		if !ok {
			return nil, errors.Wrapf(errors.ErrType, "%T", obj.Value())
		}
		return []byte(bd.Owner), nil
	}

	cases := map[string]struct {
		queryKey     string
		dest         ModelSlicePtr
		wantErr      *errors.Error
		wantResPtr   []*badge
		wantRes      []badge
		wantKeys     [][]byte
	}{
		"find none": {
			queryKey:   "carl",
			dest:       &[]*badge{},
			wantResPtr: nil,
			wantRes:    nil,
			wantKeys:   nil,
		},
		"find one, use pointer slice": {
			queryKey: "alice",
			dest:     &[]*badge{},
			wantResPtr: []*badge{
				{Owner: "alice", Score: 2},
			},
			wantKeys: [][]byte{[]byte("a")},
		},
		"find one, use value slice": {
			queryKey: "alice",
			dest:     &[]badge{},
			wantRes: []badge{
				{Owner: "alice", Score: 2},
			},
			wantKeys: [][]byte{[]byte("a")},
		},
		"find two": {
			queryKey: "bob",
			dest:     &[]*badge{},
			wantResPtr: []*badge{
				{Owner: "bob", Score: 1},
				{Owner: "bob", Score: 3},
			},
			wantKeys: [][]byte{[]byte("b1"), []byte("b2")},
		},
		"non slice destination": {
			queryKey: "alice",
			dest:     &badge{},
			wantErr:  errors.ErrType,
		},
		"wrong type slice destination": {
			queryKey: "alice",
			dest:     &[]int{},
			wantErr:  errors.ErrType,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()

			b := NewModelBucket("bdgs", &badge{}, WithIndex("owner", indexByOwner, false))

			_, err := b.Put(db, []byte("b1"), &badge{Owner: "bob", Score: 1})
			assert.Nil(t, err)
			_, err = b.Put(db, []byte("a"), &badge{Owner: "alice", Score: 2})
			assert.Nil(t, err)
			_, err = b.Put(db, []byte("b2"), &badge{Owner: "bob", Score: 3})
			assert.Nil(t, err)

			keys, err := b.ByIndex(db, "owner", []byte(tc.queryKey), tc.dest)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			if tc.wantErr != nil {
				return
			}
			assert.Equal(t, tc.wantKeys, keys)

			if tc.wantResPtr != nil {
				res := tc.dest.(*[]*badge)
				assert.Equal(t, tc.wantResPtr, *res)
			} else if tc.wantRes != nil {
				res := tc.dest.(*[]badge)
				assert.Equal(t, tc.wantRes, *res)
			}
		})
	}
}

func TestModelBucketHas(t *testing.T) {
	db := store.MemStore()

	b := NewModelBucket("bdgs", &badge{})

	_, err := b.Put(db, []byte("bob"), &badge{Owner: "bob", Score: 1})
	assert.Nil(t, err)

	assert.Nil(t, b.Has(db, []byte("bob")))

	if err := b.Has(db, nil); !errors.ErrNotFound.Is(err) {
		t.Fatalf("a nil key must return ErrNotFound: %s", err)
	}
	if err := b.Has(db, []byte("carl")); !errors.ErrNotFound.Is(err) {
		t.Fatalf("an entity that does not exist must return ErrNotFound: %s", err)
	}
}

func TestModelBucketPutWrongModelType(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("bdgs", &badge{})

	if _, err := b.Put(db, []byte("x"), &MultiRef{Refs: [][]byte{[]byte("x")}}); !errors.ErrType.Is(err) {
		t.Fatalf("storing a wrong model type must fail: %s", err)
	}
}

func TestModelBucketUniqueIndex(t *testing.T) {
	db := store.MemStore()

	indexByOwner := func(obj Object) ([]byte, error) {
		return []byte(obj.Value().(*badge).Owner), nil
	}
	b := NewModelBucket("bdgs", &badge{}, WithIndex("owner", indexByOwner, true))

	_, err := b.Put(db, []byte("first"), &badge{Owner: "bob", Score: 1})
	assert.Nil(t, err)

	if _, err := b.Put(db, []byte("second"), &badge{Owner: "bob", Score: 2}); !errors.ErrDuplicate.Is(err) {
		t.Fatalf("want a duplicate error, got %+v", err)
	}

	// Updating the indexed entity must not trip the unique constraint.
	_, err = b.Put(db, []byte("first"), &badge{Owner: "bob", Score: 9})
	assert.Nil(t, err)
}
