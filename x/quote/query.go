package quote

import (
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/errors"
)

// ExactInputRequest asks for the most tokens a fiat amount can buy.
type ExactInputRequest struct {
	// Now is the time used to judge which reservations are expired.
	Now ramp.UnixTime `json:"now"`
	// DepositIDs are the candidate deposits to quote over.
	DepositIDs [][]byte `json:"deposit_ids"`
	// Filter narrows the candidates to usable rails.
	Filter Filter `json:"filter"`
	// Token is the ticker of the asset to buy.
	Token string `json:"token"`
	// Currency is the fiat currency the buyer pays in.
	Currency string `json:"currency"`
	// FiatAmount is the fixed fiat input in minor units.
	FiatAmount int64 `json:"fiat_amount"`
}

// ExactOutputRequest asks for the cheapest way to buy a token amount.
type ExactOutputRequest struct {
	Now        ramp.UnixTime `json:"now"`
	DepositIDs [][]byte      `json:"deposit_ids"`
	Filter     Filter        `json:"filter"`
	// Currency is the fiat currency the buyer pays in.
	Currency string `json:"currency"`
	// Output is the fixed token amount to buy.
	Output coin.Coin `json:"output"`
}

// RegisterQuery will register the quoting endpoints.
func RegisterQuery(qr ramp.QueryRouter) {
	engine := NewEngine()
	qr.Register("/quotes/exactinput", exactInputHandler{engine: engine})
	qr.Register("/quotes/exactoutput", exactOutputHandler{engine: engine})
}

type exactInputHandler struct {
	engine *Engine
}

var _ ramp.QueryHandler = exactInputHandler{}

func (h exactInputHandler) Query(db ramp.ReadOnlyKVStore, mod string, data []byte) ([]ramp.Model, error) {
	if mod != ramp.KeyQueryMod {
		return nil, errors.Wrapf(errors.ErrInput, "unsupported query mod %q", mod)
	}
	var req ExactInputRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, errors.Wrap(err, "request")
	}
	q, err := h.engine.MaxOutputForExactInput(db, req.Now, req.DepositIDs, req.Filter, req.Token, req.Currency, req.FiatAmount)
	if err != nil {
		return nil, err
	}
	return marshalQuote(q)
}

type exactOutputHandler struct {
	engine *Engine
}

var _ ramp.QueryHandler = exactOutputHandler{}

func (h exactOutputHandler) Query(db ramp.ReadOnlyKVStore, mod string, data []byte) ([]ramp.Model, error) {
	if mod != ramp.KeyQueryMod {
		return nil, errors.Wrapf(errors.ErrInput, "unsupported query mod %q", mod)
	}
	var req ExactOutputRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, errors.Wrap(err, "request")
	}
	q, err := h.engine.MinInputForExactOutput(db, req.Now, req.DepositIDs, req.Filter, req.Currency, req.Output)
	if err != nil {
		return nil, err
	}
	return marshalQuote(q)
}

func marshalQuote(q *Quote) ([]ramp.Model, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, errors.Wrap(err, "marshal quote")
	}
	return []ramp.Model{ramp.Pair(q.DepositID, raw)}, nil
}
