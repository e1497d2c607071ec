/*
Package nullifier maintains the write-once registry of consumed
off-ledger payment identifiers.

Every fulfilled payment proof must record the payment identifier here
before any funds are released. A second write of the same identifier
fails, which is the sole mechanism preventing one fiat payment from
funding two intents.
*/
package nullifier
