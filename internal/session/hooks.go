package session

// Intent is a user action the presentation layer forwards without interpreting.
type Intent string

const (
	IntentDownload     Intent = "download"
	IntentNavigateAway Intent = "navigate-away"
	IntentStartAnother Intent = "start-another"
)

// Hooks maps intents to handlers. Handlers receive the delivered video location, possibly empty.
type Hooks map[Intent]func(videoURL string)

// Dispatch runs the handler for in on its own goroutine so the caller never blocks.
// It reports whether a handler was registered.
func (s *Session) Dispatch(in Intent) bool {
	h, ok := s.hooks[in]
	if !ok || h == nil {
		return false
	}
	url := s.VideoLocation()
	s.logger.Debug().Str("intent", string(in)).Msg("dispatching intent")
	go h(url)
	return true
}
