package payverify

import (
	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/gconf"
	"github.com/onramp-one/ramp/orm"
	"github.com/onramp-one/ramp/x"
)

const (
	updateMethodCost int64 = 50
)

// RegisterRoutes will instantiate and register
// all handlers in this package
func RegisterRoutes(r ramp.Registry, auth x.Authenticator) {
	bucket := NewBucket()

	r.Handle(&AddPaymentMethodMsg{}, AddPaymentMethodHandler{auth, bucket})
	r.Handle(&RemovePaymentMethodMsg{}, RemovePaymentMethodHandler{auth, bucket})
	r.Handle(&AddCurrenciesMsg{}, UpdateMethodHandler{auth, bucket, applyAddCurrencies})
	r.Handle(&RemoveCurrenciesMsg{}, UpdateMethodHandler{auth, bucket, applyRemoveCurrencies})
	r.Handle(&AddProcessorsMsg{}, UpdateMethodHandler{auth, bucket, applyAddProcessors})
	r.Handle(&RemoveProcessorsMsg{}, UpdateMethodHandler{auth, bucket, applyRemoveProcessors})
	r.Handle(&SetTimestampBufferMsg{}, UpdateMethodHandler{auth, bucket, applySetTimestampBuffer})
	r.Handle(&SetMinWitnessSigsMsg{}, UpdateMethodHandler{auth, bucket, applySetMinWitnessSigs})
	r.Handle(&UpdateConfigurationMsg{}, NewConfigHandler(auth))
}

// RegisterQuery will register this bucket as "/paymentmethods"
func RegisterQuery(qr ramp.QueryRouter) {
	NewBucket().Register("paymentmethods", qr)
}

// NewConfigHandler returns a handler for the configuration update message.
func NewConfigHandler(auth x.Authenticator) ramp.Handler {
	var conf Configuration
	return gconf.NewUpdateConfigurationHandler("payverify", &conf, auth, nil)
}

// ownerSigned ensures the configuration owner authorized the message.
func ownerSigned(ctx ramp.Context, db ramp.KVStore, auth x.Authenticator) error {
	conf, err := loadConf(db)
	if err != nil {
		return err
	}
	if !auth.HasAddress(ctx, conf.Owner) {
		return errors.Wrap(errors.ErrUnauthorized, "configuration owner signature required")
	}
	return nil
}

// AddPaymentMethodHandler registers a new payment method.
type AddPaymentMethodHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
}

var _ ramp.Handler = AddPaymentMethodHandler{}

func (h AddPaymentMethodHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ramp.CheckResult{GasAllocated: updateMethodCost}, nil
}

func (h AddPaymentMethodHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	method := msg.PaymentMethod
	if _, err := h.bucket.Put(db, []byte(method.Method), &method); err != nil {
		return nil, errors.Wrap(err, "cannot store payment method")
	}
	return &ramp.DeliverResult{Data: []byte(method.Method)}, nil
}

func (h AddPaymentMethodHandler) validate(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*AddPaymentMethodMsg, error) {
	var msg AddPaymentMethodMsg
	if err := ramp.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := ownerSigned(ctx, db, h.auth); err != nil {
		return nil, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	pm := msg.PaymentMethod
	if len(pm.Currencies) > int(conf.MaxCurrencies) {
		return nil, errors.Wrapf(errors.ErrInput, "more than %d currencies", conf.MaxCurrencies)
	}
	if len(pm.Processors) > int(conf.MaxProcessors) {
		return nil, errors.Wrapf(errors.ErrInput, "more than %d processors", conf.MaxProcessors)
	}
	if len(pm.Witnesses) > int(conf.MaxWitnesses) {
		return nil, errors.Wrapf(errors.ErrInput, "more than %d witnesses", conf.MaxWitnesses)
	}
	switch err := h.bucket.Has(db, []byte(pm.Method)); {
	case err == nil:
		return nil, errors.Wrapf(errors.ErrDuplicate, "payment method %q", pm.Method)
	case errors.ErrNotFound.Is(err):
		// free to create
	default:
		return nil, err
	}
	return &msg, nil
}

// RemovePaymentMethodHandler deletes a payment method.
type RemovePaymentMethodHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
}

var _ ramp.Handler = RemovePaymentMethodHandler{}

func (h RemovePaymentMethodHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ramp.CheckResult{GasAllocated: updateMethodCost}, nil
}

func (h RemovePaymentMethodHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.bucket.Delete(db, []byte(msg.Method)); err != nil {
		return nil, errors.Wrapf(err, "payment method %q", msg.Method)
	}
	return &ramp.DeliverResult{}, nil
}

func (h RemovePaymentMethodHandler) validate(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*RemovePaymentMethodMsg, error) {
	var msg RemovePaymentMethodMsg
	if err := ramp.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := ownerSigned(ctx, db, h.auth); err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateMethodHandler loads a payment method, applies one mutation and
// saves the result. The mutation function holds the per-message logic.
type UpdateMethodHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
	apply  func(method *PaymentMethod, msg ramp.Msg) error
}

var _ ramp.Handler = UpdateMethodHandler{}

func (h UpdateMethodHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	if _, err := h.prepare(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ramp.CheckResult{GasAllocated: updateMethodCost}, nil
}

func (h UpdateMethodHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	method, err := h.prepare(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if _, err := h.bucket.Put(db, []byte(method.Method), method); err != nil {
		return nil, errors.Wrap(err, "cannot store payment method")
	}
	return &ramp.DeliverResult{}, nil
}

func (h UpdateMethodHandler) prepare(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*PaymentMethod, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if err := ownerSigned(ctx, db, h.auth); err != nil {
		return nil, err
	}

	name := methodName(msg)
	var method PaymentMethod
	if err := h.bucket.One(db, []byte(name), &method); err != nil {
		return nil, errors.Wrapf(err, "payment method %q", name)
	}
	if err := h.apply(&method, msg); err != nil {
		return nil, err
	}
	return &method, nil
}

func methodName(msg ramp.Msg) string {
	switch m := msg.(type) {
	case *AddCurrenciesMsg:
		return m.Method
	case *RemoveCurrenciesMsg:
		return m.Method
	case *AddProcessorsMsg:
		return m.Method
	case *RemoveProcessorsMsg:
		return m.Method
	case *SetTimestampBufferMsg:
		return m.Method
	case *SetMinWitnessSigsMsg:
		return m.Method
	default:
		return ""
	}
}

func applyAddCurrencies(method *PaymentMethod, msg ramp.Msg) error {
	m := msg.(*AddCurrenciesMsg)
	for _, c := range m.Currencies {
		if method.HasCurrency(c) {
			return errors.Wrapf(errors.ErrDuplicate, "currency %q", c)
		}
		method.Currencies = append(method.Currencies, c)
	}
	return nil
}

func applyRemoveCurrencies(method *PaymentMethod, msg ramp.Msg) error {
	m := msg.(*RemoveCurrenciesMsg)
	for _, c := range m.Currencies {
		if !method.HasCurrency(c) {
			return errors.Wrapf(errors.ErrNotFound, "currency %q", c)
		}
		for i, have := range method.Currencies {
			if have == c {
				method.Currencies = append(method.Currencies[:i], method.Currencies[i+1:]...)
				break
			}
		}
	}
	return nil
}

func applyAddProcessors(method *PaymentMethod, msg ramp.Msg) error {
	m := msg.(*AddProcessorsMsg)
	for _, p := range m.Processors {
		if method.HasProcessor(p) {
			return errors.Wrapf(errors.ErrDuplicate, "processor %X", p)
		}
		method.Processors = append(method.Processors, p)
	}
	return nil
}

func applyRemoveProcessors(method *PaymentMethod, msg ramp.Msg) error {
	m := msg.(*RemoveProcessorsMsg)
	for _, p := range m.Processors {
		if !method.HasProcessor(p) {
			return errors.Wrapf(errors.ErrNotFound, "processor %X", p)
		}
		for i, have := range method.Processors {
			if string(have) == string(p) {
				method.Processors = append(method.Processors[:i], method.Processors[i+1:]...)
				break
			}
		}
	}
	return nil
}

func applySetTimestampBuffer(method *PaymentMethod, msg ramp.Msg) error {
	m := msg.(*SetTimestampBufferMsg)
	method.TimestampBuffer = m.Buffer
	return nil
}

func applySetMinWitnessSigs(method *PaymentMethod, msg ramp.Msg) error {
	m := msg.(*SetMinWitnessSigsMsg)
	if int(m.MinWitnessSigs) > len(method.Witnesses) {
		return errors.Wrap(errors.ErrInput, "threshold exceeds witness count")
	}
	method.MinWitnessSigs = m.MinWitnessSigs
	return nil
}

// Initializer fulfils the Initializer interface to load data from
// the genesis file
type Initializer struct{}

var _ ramp.Initializer = Initializer{}

// FromGenesis will parse the configuration and initial payment methods
// from genesis and save them to the database
func (Initializer) FromGenesis(opts ramp.Options, kv ramp.KVStore) error {
	if err := gconf.InitConfig(kv, opts, "payverify", &Configuration{}); err != nil {
		return errors.Wrap(err, "init config")
	}

	var methods []PaymentMethod
	if err := opts.ReadOptions("payverify", &methods); err != nil {
		return err
	}
	bucket := NewBucket()
	for i := range methods {
		m := methods[i]
		if _, err := bucket.Put(kv, []byte(m.Method), &m); err != nil {
			return errors.Wrapf(err, "payment method %q", m.Method)
		}
	}
	return nil
}
