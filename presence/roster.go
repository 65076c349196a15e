package presence

import (
	"sort"
	"sync"
	"time"
)

// ParticipantState is the lifecycle state of a roster entry.
//
// Transitions: Unknown -> Joined on a join event, Joined -> Positioned on the
// first scroll update (self-loop on repeated updates), any -> Removed on a
// leave event. Removed entries are deleted from the roster; there is no
// reconnecting state — a dropped connection re-enters via a fresh join.
type ParticipantState int

const (
	ParticipantUnknown ParticipantState = iota
	ParticipantJoined
	ParticipantPositioned
	ParticipantRemoved
)

// String returns the string representation of a ParticipantState.
func (s ParticipantState) String() string {
	switch s {
	case ParticipantUnknown:
		return "unknown"
	case ParticipantJoined:
		return "joined"
	case ParticipantPositioned:
		return "positioned"
	case ParticipantRemoved:
		return "removed"
	default:
		return "invalid"
	}
}

// Participant is a remote user currently connected to the conversation view.
type Participant struct {
	UserID   string
	Username string
	JoinedAt time.Time

	// LastSeenAt is the timestamp of the last signal received for this user,
	// used to drop out-of-order scroll updates.
	LastSeenAt time.Time

	// CurrentMessageID is the last message the participant reported viewing.
	// Empty until the first scroll update.
	CurrentMessageID string

	State ParticipantState

	// seq preserves insertion order so viewer lists render stably.
	seq uint64
}

// Roster holds the participants of exactly one conversation. The local user
// may appear in the underlying map (servers commonly echo the caller's own
// events) but is excluded from every read.
//
// All mutation flows through the Apply* methods; malformed events are dropped
// and logged, never panic.
type Roster struct {
	mu           sync.Mutex
	localUserID  string
	participants map[string]*Participant
	nextSeq      uint64
	logger       Logger
}

// NewRoster creates an empty roster scoped to one conversation. A nil logger
// falls back to a no-op logger.
func NewRoster(localUserID string, logger Logger) *Roster {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Roster{
		localUserID:  localUserID,
		participants: make(map[string]*Participant),
		logger:       logger,
	}
}

// ApplyJoin inserts or refreshes a participant. A repeat join for the same
// user overwrites the prior entry — never duplicates it — and resets the
// reported position.
func (r *Roster) ApplyJoin(userID, username string, joinedAt time.Time) {
	if userID == "" {
		r.logger.Warn("drop join event without user_id", nil)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[userID]
	if !ok {
		p = &Participant{UserID: userID, seq: r.nextSeq}
		r.nextSeq++
		r.participants[userID] = p
	}
	p.Username = username
	p.JoinedAt = joinedAt
	p.LastSeenAt = joinedAt
	p.CurrentMessageID = ""
	p.State = ParticipantJoined
}

// ApplyLeave removes the participant. A leave for an unknown user is a no-op,
// since leave notifications may race with local cleanup.
func (r *Roster) ApplyLeave(userID string) {
	if userID == "" {
		r.logger.Warn("drop leave event without user_id", nil)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants, userID)
}

// ApplyScrollUpdate records the message a participant reported viewing.
// An unknown user is implicitly created (scroll updates may be delivered
// before the join event). Updates with a timestamp older than the stored
// LastSeenAt are dropped to prevent flicker from out-of-order delivery.
func (r *Roster) ApplyScrollUpdate(userID, messageID string, timestamp time.Time) {
	if userID == "" {
		r.logger.Warn("drop scroll update without user_id", nil)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[userID]
	if !ok {
		p = &Participant{
			UserID:   userID,
			JoinedAt: timestamp,
			seq:      r.nextSeq,
		}
		r.nextSeq++
		r.participants[userID] = p
	} else if timestamp.Before(p.LastSeenAt) {
		r.logger.Debug("drop stale scroll update", map[string]any{"user_id": userID})
		return
	}
	p.CurrentMessageID = messageID
	p.LastSeenAt = timestamp
	p.State = ParticipantPositioned
}

// ViewersOf returns the participants currently viewing the given message,
// excluding the local user, in stable insertion order.
func (r *Roster) ViewersOf(messageID string) []Participant {
	if messageID == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var viewers []Participant
	for _, p := range r.participants {
		if p.UserID == r.localUserID || p.CurrentMessageID != messageID {
			continue
		}
		viewers = append(viewers, *p)
	}
	sort.Slice(viewers, func(i, j int) bool { return viewers[i].seq < viewers[j].seq })
	return viewers
}

// Participants returns all roster entries excluding the local user, in stable
// insertion order.
func (r *Roster) Participants() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		if p.UserID == r.localUserID {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// ParticipantCount returns the roster size excluding the local user.
func (r *Roster) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.participants)
	if _, ok := r.participants[r.localUserID]; ok {
		n--
	}
	return n
}

// Clear empties the roster. Called on conversation switch or unmount.
func (r *Roster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants = make(map[string]*Participant)
}
