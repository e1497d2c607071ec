package app

import (
	"testing"

	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/ramptest"
	"github.com/onramp-one/ramp/ramptest/assert"
)

func TestRouterSuccess(t *testing.T) {
	r := NewRouter()

	msg := &ramptest.Msg{RoutePath: "test/good"}
	handler := &ramptest.Handler{}
	r.Handle(msg, handler)

	tx := &ramptest.Tx{Msg: msg}
	if _, err := r.Check(nil, nil, tx); err != nil {
		t.Fatalf("check failed: %+v", err)
	}
	if _, err := r.Deliver(nil, nil, tx); err != nil {
		t.Fatalf("deliver failed: %+v", err)
	}
	assert.Equal(t, 2, handler.CallCount())
}

func TestRouterNoHandler(t *testing.T) {
	r := NewRouter()
	tx := &ramptest.Tx{Msg: &ramptest.Msg{RoutePath: "test/secret"}}

	if _, err := r.Check(nil, nil, tx); !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found, got %+v", err)
	}
	if _, err := r.Deliver(nil, nil, tx); !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found, got %+v", err)
	}
}

func TestRouterRegistrationPanics(t *testing.T) {
	r := NewRouter()
	handler := &ramptest.Handler{}
	r.Handle(&ramptest.Msg{RoutePath: "test/good"}, handler)

	assertPanics(t, func() {
		r.Handle(&ramptest.Msg{RoutePath: "test/good"}, handler)
	})
	assertPanics(t, func() {
		r.Handle(&ramptest.Msg{RoutePath: "not an URL"}, handler)
	})
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	fn()
}
