package graph

import "strings"

// Resolution is the outcome of matching a call site against an overload chain.
type Resolution struct {
	// Class is the matched class, or nil when nothing matched.
	Class Class
	// Closest is the last compound whose parameter count fit the call, kept
	// only for diagnostics. It is never instantiated.
	Closest *Compound
	// Ambiguous is set when a second, equally good compound also matched.
	Ambiguous bool
	// Candidates lists every compound inspected, in chain order.
	Candidates []*Compound
}

// Resolve walks the overload chain starting at c for a call site with the
// given arity and argument count. A primitive or tunnel ends the walk and
// matches unconditionally. A compound matches when it accepts nargs and its
// boundary arity equals the request; a compound taking exactly nargs
// parameters is preferred over one filling the rest from defaults. Among
// equally good matches the first in the chain wins. Resolve does not modify
// any class.
func Resolve(c Class, ninputs, noutputs, nargs int) Resolution {
	var (
		res      Resolution
		bestRank int
	)
	seen := make(map[Class]bool)
	for cur := c; cur != nil && !seen[cur]; {
		seen[cur] = true
		switch x := cur.(type) {
		case *Synonym:
			cur = x.target
			continue
		case *Compound:
			res.Candidates = append(res.Candidates, x)
			if x.acceptsArgs(nargs) {
				if x.ninputs == ninputs && x.noutputs == noutputs {
					rank := 1
					if nargs == len(x.formals) {
						rank = 2
					}
					switch {
					case rank > bestRank:
						res.Class, bestRank = x, rank
						res.Ambiguous = false
					case rank == bestRank:
						res.Ambiguous = true
					}
				} else {
					res.Closest = x
				}
			}
			cur = x.prev
		default:
			if res.Class == nil {
				res.Class = cur
			}
			return res
		}
	}
	if res.Class == nil && res.Closest == nil && len(res.Candidates) > 0 {
		res.Closest = res.Candidates[0]
	}
	return res
}

// describeCandidates lists candidate signatures for diagnostics.
func describeCandidates(cands []*Compound) string {
	sigs := make([]string, len(cands))
	for i, c := range cands {
		sigs[i] = c.Signature()
	}
	return strings.Join(sigs, ", ")
}
