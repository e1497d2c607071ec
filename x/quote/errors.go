package quote

import (
	"github.com/onramp-one/ramp/errors"
)

// ErrNoQuote is raised when none of the candidate deposits can serve
// the requested trade.
var ErrNoQuote = errors.Register(1300, "no quote available")
