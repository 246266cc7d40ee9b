package flood

import (
	"github.com/hashicorp/go-multierror"
	"github.com/teranos/netsukuku/logger"
	"github.com/teranos/netsukuku/netmap"
)

// Target is one neighbor's transport address.
type Target struct {
	Pos  netmap.Position
	Addr string
}

// Sender transmits payload to addr. Satisfied by transport.Socket.Send.
type Sender func(addr string, payload []byte) error

// Send iterates targets and transmits payload to every one for which pred
// reports false, aggregating per-neighbor transport failures without
// aborting the round — the dispatcher is fire-and-forget.
func Send(targets []Target, ctx Context, pred Predicate, send Sender, payload []byte) error {
	var merr *multierror.Error
	for _, t := range targets {
		if pred(ctx, t.Pos) {
			continue
		}
		if err := send(t.Addr, payload); err != nil {
			logger.FloodDebugw("flood send failed", logger.FieldNeighbor, t.Addr, logger.FieldError, err.Error())
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}
