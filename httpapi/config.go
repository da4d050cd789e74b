package httpapi

// Config defines control API settings.
type Config struct {
	Addr string
	// DeterministicReady exposes the replay flush endpoint. Test mode only.
	DeterministicReady bool
}
