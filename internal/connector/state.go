package connector

import "sync"

// DefaultChannel seeds the channel set before connect.
const DefaultChannel = "general"

// ChannelSet tracks the channels the session believes it has joined.
// Membership is unique; the exposed view preserves insertion order.
type ChannelSet struct {
	mu    sync.Mutex
	names []string
	index map[string]struct{}
}

// NewChannelSet creates a set seeded with the given channels.
func NewChannelSet(names ...string) *ChannelSet {
	s := &ChannelSet{index: make(map[string]struct{})}
	for _, name := range names {
		s.add(name)
	}
	return s
}

// Add inserts a channel. Adding a present channel is a no-op.
func (s *ChannelSet) Add(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(name)
}

func (s *ChannelSet) add(name string) {
	if _, ok := s.index[name]; ok {
		return
	}
	s.index[name] = struct{}{}
	s.names = append(s.names, name)
}

// Remove deletes a channel. Removing an absent channel is a no-op.
func (s *ChannelSet) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[name]; !ok {
		return
	}
	delete(s.index, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
}

// Has reports membership.
func (s *ChannelSet) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[name]
	return ok
}

// Replace swaps the whole set for the given channels.
func (s *ChannelSet) Replace(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = nil
	s.index = make(map[string]struct{})
	for _, name := range names {
		s.add(name)
	}
}

// List returns the channels in insertion order.
func (s *ChannelSet) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of channels.
func (s *ChannelSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

// ConnectionState is the identity and status record for one session.
// Identity fields are immutable after connect; userID and connected are
// set by the connector as the connect sequence progresses.
type ConnectionState struct {
	ID       string
	Name     string
	Host     string
	Secure   bool
	Username string
	AutoJoin bool
	Filter   bool

	mu        sync.RWMutex
	userID    string
	connected bool
	channels  *ChannelSet
}

// Connected reports whether the full connect sequence has completed.
func (s *ConnectionState) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// UserID returns the platform-assigned user id, "" until login succeeds.
func (s *ConnectionState) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Channels returns the joined-channel view at observation time.
func (s *ConnectionState) Channels() []string {
	return s.channels.List()
}

func (s *ConnectionState) setUserID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = id
}

func (s *ConnectionState) setConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = v
}

// StateSnapshot is the bus-facing view of a ConnectionState. The
// password never appears here: it is used once during login and
// discarded.
type StateSnapshot struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Host      string   `json:"host"`
	Secure    bool     `json:"secure"`
	Username  string   `json:"username"`
	UserID    string   `json:"userId,omitempty"`
	AutoJoin  bool     `json:"autoJoin"`
	Filter    bool     `json:"filter"`
	Connected bool     `json:"connected"`
	Channels  []string `json:"channels"`
}

// Snapshot captures the state for emission on the bus.
func (s *ConnectionState) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StateSnapshot{
		ID:        s.ID,
		Name:      s.Name,
		Host:      s.Host,
		Secure:    s.Secure,
		Username:  s.Username,
		UserID:    s.userID,
		AutoJoin:  s.AutoJoin,
		Filter:    s.Filter,
		Connected: s.connected,
		Channels:  s.channels.List(),
	}
}
