package escrow

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/orm"
	"github.com/onramp-one/ramp/x/cash"
)

// controller bundles the storage and ledger access shared by all
// handlers in this package.
type controller struct {
	deposits  orm.ModelBucket
	intents   orm.ModelBucket
	verifiers orm.ModelBucket
	mover     cash.CoinMover
}

func newController(mover cash.CoinMover) *controller {
	return &controller{
		deposits:  NewDepositBucket(),
		intents:   NewIntentBucket(),
		verifiers: NewVerifierBucket(),
		mover:     mover,
	}
}

// pruneExpired reclaims expired reservations of a deposit. Each pruned
// intent is deleted and its amount returned to the deposit's remaining
// balance. When need is not nil, pruning stops as soon as the remaining
// balance covers it. The deposit is mutated but not saved; the caller
// decides when to persist. Returned are the keys of the pruned intents.
func (c *controller) pruneExpired(
	db ramp.KVStore,
	dep *Deposit,
	period ramp.UnixDuration,
	now ramp.UnixTime,
	need *coin.Coin,
) ([][]byte, error) {
	var pruned [][]byte

	hashes := make([][]byte, len(dep.IntentHashes))
	copy(hashes, dep.IntentHashes)

	for _, hash := range hashes {
		if need != nil && dep.Remaining.IsGTE(*need) {
			break
		}
		var intent Intent
		if err := c.intents.One(db, hash, &intent); err != nil {
			return pruned, errors.Wrapf(err, "intent %X", hash)
		}
		if !intent.Expired(period, now) {
			continue
		}
		if err := c.intents.Delete(db, hash); err != nil {
			return pruned, errors.Wrapf(err, "delete intent %X", hash)
		}
		remaining, err := dep.Remaining.Add(intent.Amount)
		if err != nil {
			return pruned, err
		}
		outstanding, err := dep.Outstanding.Subtract(intent.Amount)
		if err != nil {
			return pruned, err
		}
		dep.Remaining = remaining
		dep.Outstanding = outstanding
		dep.RemoveIntentHash(hash)
		pruned = append(pruned, hash)
	}
	return pruned, nil
}

// settleIntent removes a settled reservation from the deposit books.
// The unreleased part of the reservation flows back into the remaining
// balance. The intent record is deleted and the deposit either saved
// or, when fully drained, closed. Returns true if the deposit closed.
func (c *controller) settleIntent(
	db ramp.KVStore,
	depositID []byte,
	dep *Deposit,
	intentHash []byte,
	reserved, released coin.Coin,
) (bool, error) {
	unreleased, err := reserved.Subtract(released)
	if err != nil {
		return false, err
	}
	if !unreleased.IsNonNegative() {
		return false, errors.Wrap(errors.ErrAmount, "release exceeds reservation")
	}
	remaining, err := dep.Remaining.Add(unreleased)
	if err != nil {
		return false, err
	}
	outstanding, err := dep.Outstanding.Subtract(reserved)
	if err != nil {
		return false, err
	}
	dep.Remaining = remaining
	dep.Outstanding = outstanding
	dep.RemoveIntentHash(intentHash)

	if err := c.intents.Delete(db, intentHash); err != nil {
		return false, errors.Wrapf(err, "delete intent %X", intentHash)
	}
	return c.saveOrClose(db, depositID, dep)
}

// saveOrClose persists the deposit, or deletes it once it holds no
// value and no reservations. Returns true if the deposit was closed.
func (c *controller) saveOrClose(db ramp.KVStore, depositID []byte, dep *Deposit) (bool, error) {
	if dep.Remaining.IsZero() && dep.Outstanding.IsZero() {
		if err := c.deposits.Delete(db, depositID); err != nil {
			return false, errors.Wrapf(err, "delete deposit %X", depositID)
		}
		return true, nil
	}
	if _, err := c.deposits.Put(db, depositID, dep); err != nil {
		return false, errors.Wrapf(err, "save deposit %X", depositID)
	}
	return false, nil
}

// feeCut returns the fraction of a release taken as fee, floor rounded.
func feeCut(release coin.Coin, share ramp.Fraction) (coin.Coin, error) {
	if share.IsZero() {
		return coin.Coin{Ticker: release.Ticker}, nil
	}
	gross, err := release.Multiply(int64(share.Numerator))
	if err != nil {
		return coin.Coin{}, err
	}
	cut, _, err := gross.Divide(int64(share.Denominator))
	if err != nil {
		return coin.Coin{}, err
	}
	return cut, nil
}

// GatingPayload is the message a deposit's gating key signs to approve
// a reservation. All fields are length prefixed so no two parameter
// combinations produce the same payload.
func GatingPayload(depositID []byte, owner ramp.Address, amount coin.Coin, to ramp.Address, method, currency string, rate int64) []byte {
	h := sha256.New()
	writeField(h, depositID)
	writeInt64(h, amount.Whole)
	writeInt64(h, amount.Fractional)
	writeField(h, []byte(amount.Ticker))
	writeField(h, to)
	writeField(h, []byte(method))
	writeField(h, owner)
	writeField(h, []byte(currency))
	writeInt64(h, rate)
	return h.Sum(nil)
}

func writeField(h interface{ Write([]byte) (int, error) }, raw []byte) {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(raw)))
	h.Write(size[:])
	h.Write(raw)
}

func writeInt64(h interface{ Write([]byte) (int, error) }, v int64) {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], uint64(v))
	h.Write(raw[:])
}
