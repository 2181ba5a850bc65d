package domain

// State is a Signaling Session lifecycle state. States only move forward.
type State int

const (
	StateCreated State = iota
	StateAcquiringMedia
	StateOfferCreated
	StateICEComplete
	StateAwaitingAnswer
	StateConnected
	StateFailed
	StateStopped
)

var stateNames = [...]string{
	StateCreated:        "created",
	StateAcquiringMedia: "acquiring_media",
	StateOfferCreated:   "offer_created",
	StateICEComplete:    "ice_complete",
	StateAwaitingAnswer: "awaiting_answer",
	StateConnected:      "connected",
	StateFailed:         "failed",
	StateStopped:        "stopped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateStopped
}
