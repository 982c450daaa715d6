// Package transport implements the half-duplex request/reply link to the
// coprocessor.
//
// A Link owns one frame window and its control register. Every exchange runs
// inside Link.Do, which holds the link mutex for the whole round trip:
//
//	err := link.Do(ctx, func(tx *transport.Txn) error {
//		if err := tx.Write(&protocol.SetCPUTurbo{Level: 2}); err != nil {
//			return err
//		}
//		return tx.Send(false).Err()
//	})
//
// Waits on peer flags are bounded spins. A peer that stays silent yields
// api.ErrPeerTimeout; consecutive timeouts open a circuit breaker and the link
// fails fast with api.ErrLinkFaulted until the reset interval elapses.
package transport
