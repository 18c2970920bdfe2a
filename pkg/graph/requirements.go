package graph

import (
	"strings"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
)

// CheckRequirements reports every configuration requirement, and every
// requirement of a primitive class in use, that the library does not
// provide. A requirement written "a|b" is met when either word is provided.
// It returns the number of unmet requirements.
func (g *Graph) CheckRequirements(h diag.Handler) int {
	if h == nil {
		h = g.handler
	}
	missing := 0
	checked := make(map[string]bool)
	check := func(req string, loc domain.Location, who string) {
		if req == "" || checked[req] {
			return
		}
		checked[req] = true
		for _, alt := range strings.Split(req, "|") {
			if alt = strings.TrimSpace(alt); alt != "" && g.lib.Provides(alt) {
				return
			}
		}
		missing++
		if who == "" {
			h.Report(diag.Errorf(diag.UnsatisfiedRequirement, loc, "requirement '%s' is not provided", req))
		} else {
			h.Report(diag.Errorf(diag.UnsatisfiedRequirement, loc, "requirement '%s' of '%s' is not provided", req, who))
		}
	}
	for _, req := range g.requirements {
		check(req, domain.Location{}, "")
	}
	for _, e := range g.elements {
		if !e.live || e.class.Kind() != KindPrimitive {
			continue
		}
		for _, req := range strings.Fields(e.class.Traits().Requirements) {
			check(req, e.loc, e.class.Name())
		}
	}
	return missing
}
