/*
Package payverify implements the payment verification framework.

A payment method binds a fiat payment rail to exactly one verifier. A
verifier inspects a signed payment claim and decides whether the
off-ledger payment happened, returning a bounded release amount. All
verifiers share the same check pipeline and record the payment
identifier in the nullifier registry so a proof can never be redeemed
twice.
*/
package payverify
