package routing

// Reason records which selection tier produced a route.
type Reason int

const (
	ReasonExactMatch Reason = iota
	ReasonFirstActive
	ReasonFirstEntry
	ReasonDefault
)

func (r Reason) String() string {
	switch r {
	case ReasonExactMatch:
		return "exact_match"
	case ReasonFirstActive:
		return "first_active"
	case ReasonFirstEntry:
		return "first_entry"
	case ReasonDefault:
		return "default"
	default:
		return "unknown"
	}
}

type Selection struct {
	Route  Route
	Reason Reason
}

// Select picks exactly one route for the requested model id.
//
// Exact matches among active entries win, then the first active entry, then
// the first entry of any state, then the table's default backend.
func Select(requested string, t *Table) (Selection, error) {
	if t == nil {
		return Selection{}, ErrNoRoute
	}

	if len(t.routes) > 0 {
		for _, r := range t.routes {
			if r.Active && r.ExposedModelID == requested {
				return Selection{Route: r, Reason: ReasonExactMatch}, nil
			}
		}

		for _, r := range t.routes {
			if r.Active {
				return Selection{Route: r, Reason: ReasonFirstActive}, nil
			}
		}

		return Selection{Route: t.routes[0], Reason: ReasonFirstEntry}, nil
	}

	if t.fallback.Endpoint == "" {
		return Selection{}, ErrNoRoute
	}

	return Selection{Route: t.fallback, Reason: ReasonDefault}, nil
}
