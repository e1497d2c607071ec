package payverify

import (
	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
)

// VerifyWitnessSignatures checks that at least threshold distinct
// witnesses signed the message. A signature is counted when its public
// key verifies the message and the derived address is in the witness
// set and was not counted before. The result does not depend on the
// order of signatures or witnesses. Extra invalid signatures are
// ignored as long as the threshold is met.
func VerifyWitnessSignatures(message []byte, sigs []*WitnessSignature, witnesses []ramp.Address, threshold uint32) error {
	if threshold == 0 {
		return errors.Wrap(ErrWitness, "zero threshold")
	}
	if int(threshold) > len(sigs) {
		return errors.Wrapf(ErrWitness, "%d signatures for threshold %d", len(sigs), threshold)
	}
	if int(threshold) > len(witnesses) {
		return errors.Wrapf(ErrWitness, "%d witnesses for threshold %d", len(witnesses), threshold)
	}

	counted := make(map[string]struct{}, threshold)
	for _, sig := range sigs {
		if sig == nil || sig.Pubkey == nil {
			continue
		}
		if !sig.Pubkey.Verify(message, sig.Signature) {
			continue
		}
		addr := sig.Pubkey.Address()
		if _, ok := counted[string(addr)]; ok {
			continue
		}
		if !isWitness(witnesses, addr) {
			continue
		}
		counted[string(addr)] = struct{}{}
		if uint32(len(counted)) >= threshold {
			return nil
		}
	}
	return errors.Wrapf(ErrWitness, "%d of %d distinct witness signatures", len(counted), threshold)
}

func isWitness(witnesses []ramp.Address, addr ramp.Address) bool {
	for _, w := range witnesses {
		if w.Equals(addr) {
			return true
		}
	}
	return false
}
