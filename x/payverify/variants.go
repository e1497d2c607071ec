package payverify

import (
	"bytes"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/orm"
	"github.com/onramp-one/ramp/x/nullifier"
)

// AttestVerifier accepts a claim attested by a single provider
// signature. The signer must be the processor named in the claim.
type AttestVerifier struct {
	id         string
	methods    methodStore
	nullifiers nullifier.Controller
}

var _ PaymentVerifier = AttestVerifier{}

// NewAttestVerifier returns a verifier accepting single-provider
// attestations.
func NewAttestVerifier(id string, nullifiers nullifier.Controller) AttestVerifier {
	return AttestVerifier{
		id:         id,
		methods:    methodStore{bucket: NewBucket()},
		nullifiers: nullifiers,
	}
}

// VerifyPayment implements the PaymentVerifier interface.
func (v AttestVerifier) VerifyPayment(ctx ramp.Context, db ramp.KVStore, req VerificationRequest, proof *PaymentProof) (*VerificationResult, error) {
	method, err := v.methods.load(db, proof.Claim.Method)
	if err != nil {
		return nil, err
	}

	if len(proof.Attestations) != 1 {
		return nil, errors.Wrapf(ErrAttestation, "%d attestations, want exactly 1", len(proof.Attestations))
	}
	att := proof.Attestations[0]
	if att == nil || att.Pubkey == nil {
		return nil, errors.Wrap(ErrAttestation, "missing attestor key")
	}
	if !bytes.Equal(att.Pubkey.Address(), proof.Claim.Processor) {
		return nil, errors.Wrap(ErrAttestation, "attestor is not the claimed processor")
	}
	if !att.Pubkey.Verify(proof.Claim.Digest(), att.Signature) {
		return nil, errors.Wrap(ErrAttestation, "signature does not verify")
	}

	return verifyClaim(ctx, db, req, proof, method, v.nullifiers, Condition(v.id).Address())
}

// MultiProcessorVerifier accepts a claim attested by any of the
// method's authorized processors.
type MultiProcessorVerifier struct {
	id         string
	methods    methodStore
	nullifiers nullifier.Controller
}

var _ PaymentVerifier = MultiProcessorVerifier{}

// NewMultiProcessorVerifier returns a verifier accepting attestations
// from any authorized processor.
func NewMultiProcessorVerifier(id string, nullifiers nullifier.Controller) MultiProcessorVerifier {
	return MultiProcessorVerifier{
		id:         id,
		methods:    methodStore{bucket: NewBucket()},
		nullifiers: nullifiers,
	}
}

// VerifyPayment implements the PaymentVerifier interface.
func (v MultiProcessorVerifier) VerifyPayment(ctx ramp.Context, db ramp.KVStore, req VerificationRequest, proof *PaymentProof) (*VerificationResult, error) {
	method, err := v.methods.load(db, proof.Claim.Method)
	if err != nil {
		return nil, err
	}

	digest := proof.Claim.Digest()
	var attested bool
	for _, att := range proof.Attestations {
		if att == nil || att.Pubkey == nil {
			continue
		}
		if !method.HasProcessor(att.Pubkey.Address()) {
			continue
		}
		if !bytes.Equal(att.Pubkey.Address(), proof.Claim.Processor) {
			continue
		}
		if att.Pubkey.Verify(digest, att.Signature) {
			attested = true
			break
		}
	}
	if !attested {
		return nil, errors.Wrap(ErrAttestation, "no valid processor attestation")
	}

	return verifyClaim(ctx, db, req, proof, method, v.nullifiers, Condition(v.id).Address())
}

// ThresholdVerifier accepts a claim once enough distinct witnesses
// signed its digest.
type ThresholdVerifier struct {
	id         string
	methods    methodStore
	nullifiers nullifier.Controller
}

var _ PaymentVerifier = ThresholdVerifier{}

// NewThresholdVerifier returns a verifier requiring a witness quorum.
func NewThresholdVerifier(id string, nullifiers nullifier.Controller) ThresholdVerifier {
	return ThresholdVerifier{
		id:         id,
		methods:    methodStore{bucket: NewBucket()},
		nullifiers: nullifiers,
	}
}

// VerifyPayment implements the PaymentVerifier interface.
func (v ThresholdVerifier) VerifyPayment(ctx ramp.Context, db ramp.KVStore, req VerificationRequest, proof *PaymentProof) (*VerificationResult, error) {
	method, err := v.methods.load(db, proof.Claim.Method)
	if err != nil {
		return nil, err
	}

	digest := proof.Claim.Digest()
	if err := VerifyWitnessSignatures(digest, proof.Attestations, method.Witnesses, method.MinWitnessSigs); err != nil {
		return nil, err
	}

	return verifyClaim(ctx, db, req, proof, method, v.nullifiers, Condition(v.id).Address())
}

// methodStore loads payment methods by name.
type methodStore struct {
	bucket orm.ModelBucket
}

func (s methodStore) load(db ramp.KVStore, name string) (*PaymentMethod, error) {
	var method PaymentMethod
	if err := s.bucket.One(db, []byte(name), &method); err != nil {
		return nil, errors.Wrapf(err, "payment method %q", name)
	}
	return &method, nil
}
