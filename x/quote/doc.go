/*
Package quote implements read only price discovery over escrow
deposits.

A buyer holding fiat asks how many tokens a given set of deposits can
deliver, or how much fiat a desired token amount costs. The engine
never mutates state: expired reservations are counted as available
liquidity without touching them, matching what an inline prune during
the subsequent intent signaling would free.
*/
package quote
