package server

import "github.com/ctripcorp/Redis-On-Rocks-sub000/internal/wireproto"

// pendingCmd tracks one client command's outstanding keyRequests: a command
// producing N keyRequests (DEL touching several keys, for instance) only
// replies once all N have settled, successfully or not. Every method here
// is only ever called from the single server goroutine, so no locking.
type pendingCmd struct {
	client    *wireproto.Client
	cmdName   string
	remaining int
	firstErr  error
	onDone    func(cmd *pendingCmd)
}

func newPendingCmd(client *wireproto.Client, cmdName string, n int, onDone func(*pendingCmd)) *pendingCmd {
	return &pendingCmd{client: client, cmdName: cmdName, remaining: n, onDone: onDone}
}

// complete marks one keyRequest of this command settled successfully.
func (p *pendingCmd) complete() { p.settle(nil) }

// fail marks one keyRequest settled with err; the command's eventual reply
// reports the first error seen, but every keyRequest still gets a chance
// to run (spec.md §7: "the batch continues so sibling requests are not
// penalized").
func (p *pendingCmd) fail(err error) { p.settle(err) }

func (p *pendingCmd) settle(err error) {
	if err != nil && p.firstErr == nil {
		p.firstErr = err
	}
	p.remaining--
	if p.remaining == 0 && p.onDone != nil {
		p.onDone(p)
	}
}
