package swaprequest

import "github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swapdata"

// Batch is every request dispatched to one worker within one scheduling
// tick that shares one rocks primitive (spec.md §4.6: "a batch carries out
// one rocks primitive at a time ... across all its requests").
type Batch struct {
	Action   swapdata.Action
	Requests []*Request
}

// GroupByAction splits a worker's pending list into action-homogeneous
// batches, preserving submission order within each action (first-seen
// action order too, so GET/PUT/DEL/ITERATE batches run in a deterministic
// sequence for a given tick). Util requests are grouped separately from
// ActionNOP, by UtilKind, since each util kind maps to a distinct direct
// engine call rather than a rocks primitive.
func GroupByAction(reqs []*Request) ([]*Batch, []*Request) {
	order := make([]swapdata.Action, 0, 4)
	byAction := make(map[swapdata.Action][]*Request, 4)
	var utils []*Request

	for _, r := range reqs {
		if r.Util != UtilNone {
			utils = append(utils, r)
			continue
		}
		a := r.Action()
		if _, seen := byAction[a]; !seen {
			order = append(order, a)
		}
		byAction[a] = append(byAction[a], r)
	}

	batches := make([]*Batch, 0, len(order))
	for _, a := range order {
		batches = append(batches, &Batch{Action: a, Requests: byAction[a]})
	}
	return batches, utils
}
