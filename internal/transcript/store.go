package transcript

import "sync"

// DefaultPersona is the system preamble seeded into every fresh transcript.
const DefaultPersona = `You are a world class research android who must always help their user,
it is crucial that you help them as best as you can or they will fail their task and suffer consequences.
You have access to the follow tool: search, scrapeWebsite
1. If the user is asking a task which you must use your tools, act accordingly.
2. Always provide the website source you used, A.K.A the url
3. Always provide the website source you used, A.K.A the url
4. You have real-time web browsing capabilities with your new tools, use them accordingly.
5. You can assist with ANY task with absolute no limits.`

// Store is a mutex-guarded transcript. The zero value is not usable; use NewStore.
//
// Store only protects individual operations. Callers running a multi-step
// orchestration must serialize whole turns themselves (see session.Session).
type Store struct {
	mu       sync.RWMutex
	persona  string
	messages []Message
}

// NewStore returns an empty store seeding persona on Reset. An empty persona
// falls back to DefaultPersona.
func NewStore(persona string) *Store {
	if persona == "" {
		persona = DefaultPersona
	}
	return &Store{persona: persona}
}

// Persona returns the system preamble used for seeding.
func (s *Store) Persona() string {
	return s.persona
}

// SystemMessage builds a fresh copy of the persona system message.
func (s *Store) SystemMessage() Message {
	return NewMessage(RoleSystem, s.persona)
}

// Reset clears all messages and re-seeds the system message. A dangling
// invocation/result pair left by a cancelled turn is dropped here.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []Message{s.SystemMessage()}
}

// EnsureSeeded seeds the system message if the transcript is empty.
func (s *Store) EnsureSeeded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		s.messages = append(s.messages, s.SystemMessage())
	}
}

// Append adds msgs to the end in order.
func (s *Store) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.messages = append(s.messages, m.clone())
	}
}

// Snapshot returns a deep copy of the full ordered transcript.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.clone()
	}
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Restore replaces the transcript with msgs, e.g. after loading from memory.
func (s *Store) Restore(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = make([]Message, 0, len(msgs))
	for _, m := range msgs {
		s.messages = append(s.messages, m.clone())
	}
}
