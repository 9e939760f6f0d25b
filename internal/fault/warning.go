package fault

// Warning is a non-fatal diagnostic. Resolution continues with the named
// feature degraded or marked unavailable.
type Warning struct {
	Code    string
	Message string
}

func (w Warning) String() string {
	return w.Code + ": " + w.Message
}
