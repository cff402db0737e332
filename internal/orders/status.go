package orders

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Effect is the inventory side effect a status transition requires. The
// orchestrator performs the effect first and commits the new status only if
// it succeeded.
type Effect int

const (
	EffectNone Effect = iota
	// EffectRelease returns the reserved quantities for every item.
	EffectRelease
	// EffectReserve re-reserves quantities for every item; the whole
	// transition fails if any SKU is unavailable.
	EffectReserve
)

// validNext lists every legal transition and its inventory effect.
// delivered is terminal.
var validNext = map[Status]map[Status]Effect{
	StatusPending:    {StatusProcessing: EffectNone, StatusCancelled: EffectRelease},
	StatusProcessing: {StatusShipped: EffectNone, StatusCancelled: EffectRelease},
	StatusShipped:    {StatusDelivered: EffectNone, StatusCancelled: EffectRelease},
	StatusDelivered:  {},
	StatusCancelled:  {StatusPending: EffectReserve},
}

// Transition reports whether from -> to is legal and which inventory effect
// it requires. Anything not in the table is ErrInvalidTransition.
func Transition(from, to Status) (Effect, error) {
	next, ok := validNext[from]
	if !ok {
		return EffectNone, ErrInvalidTransition
	}
	eff, ok := next[to]
	if !ok {
		return EffectNone, ErrInvalidTransition
	}
	return eff, nil
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}
