package stream

// Status is the connection lifecycle state exposed to the owner. Owners
// never see raw transport errors, only these transitions plus a
// human-readable reason.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// transitions is the legal state machine as data:
// disconnected → connecting → connected → (error → connecting)* → disconnected.
// Keeping it first-class lets the reconnect policy be asserted in tests
// without a transport in the loop.
var transitions = map[Status][]Status{
	StatusDisconnected: {StatusConnecting},
	StatusConnecting:   {StatusConnected, StatusError, StatusDisconnected},
	StatusConnected:    {StatusError, StatusDisconnected},
	StatusError:        {StatusConnecting, StatusDisconnected},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
