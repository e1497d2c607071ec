/*
Package escrow implements the deposit and intent state machine.

A depositor locks an amount of a fungible asset into a deposit,
declaring the payment rails a buyer can pay through and the minimum
conversion rate per currency. Buyers reserve liquidity by signaling
intents and redeem them with a payment proof. Expired reservations are
reclaimed inline by the next caller that needs the liquidity, so no
background maintenance is required.
*/
package escrow
