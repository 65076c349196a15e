package presence

import (
	"context"
	"sync"
)

// Session is the presence scope for one active conversation: one roster, one
// viewport tracker, one transport client, constructed on mount and disposed
// on unmount or conversation switch. Never a process-wide singleton.
//
// Sessions do not outlive their conversation. Switching conversations means
// closing the old session and opening a new one; a closed session drops every
// late transport event, so stale deliveries cannot resurrect state.
type Session struct {
	conversationID string
	local          identity
	roster         *Roster
	tracker        *Tracker
	client         *Client
	logger         Logger

	mu     sync.Mutex
	closed bool
}

// OpenSession connects the presence subsystem for one conversation. viewport
// measures the scroll container for the tracker. The returned session must be
// closed exactly once, on unmount or conversation switch.
func OpenSession(ctx context.Context, cfg Config, conversationID, token string, viewport MeasureFunc, logger Logger) (*Session, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	local, err := identityFromToken(token)
	if err != nil {
		return nil, err
	}

	s := &Session{
		conversationID: conversationID,
		local:          local,
		logger:         logger,
	}
	s.roster = NewRoster(local.UserID, logger)

	client := NewClient(cfg)
	client.SetLogger(logger)
	client.OnUserJoined(s.handleUserJoined)
	client.OnUserLeft(s.handleUserLeft)
	client.OnScrollUpdate(s.handleScrollUpdate)
	client.OnPresenceUpdate(s.handlePresenceUpdate)
	client.OnError(s.handleError)
	s.client = client

	s.tracker = NewTracker(cfg, viewport, func(rep Report) {
		if s.isClosed() {
			return
		}
		client.SendScrollReport(rep.MessageID, rep.MessageIndex)
	})
	s.tracker.SetLogger(logger)

	if err := client.Connect(ctx, conversationID, token); err != nil {
		s.tracker.Close()
		return nil, err
	}
	return s, nil
}

// ConversationID returns the conversation this session is scoped to.
func (s *Session) ConversationID() string { return s.conversationID }

// LocalUserID returns the local user derived from the auth token.
func (s *Session) LocalUserID() string { return s.local.UserID }

// Roster returns the presence store owned by this session.
func (s *Session) Roster() *Roster { return s.roster }

// Tracker returns the viewport tracker owned by this session.
func (s *Session) Tracker() *Tracker { return s.tracker }

// Client returns the transport adapter owned by this session.
func (s *Session) Client() *Client { return s.client }

// OnStateChanged registers callback for connection state transitions, e.g.
// to derive a "presence unavailable" indicator.
func (s *Session) OnStateChanged(fn func(StateEvent)) { s.client.OnStateChanged(fn) }

// Close tears the session down atomically: transport disconnected, roster
// cleared, tracker elements and pending timer cancelled. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.client.Disconnect()
	s.tracker.Close()
	s.roster.Clear()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) handleUserJoined(ev UserEvent) {
	if s.isClosed() {
		return
	}
	s.roster.ApplyJoin(ev.UserID, ev.Username, timeFromMillis(ev.Timestamp))
}

func (s *Session) handleUserLeft(ev UserEvent) {
	if s.isClosed() {
		return
	}
	s.roster.ApplyLeave(ev.UserID)
}

func (s *Session) handleScrollUpdate(ev ScrollEvent) {
	if s.isClosed() {
		return
	}
	s.roster.ApplyScrollUpdate(ev.UserID, ev.CurrentMessageID, timeFromMillis(ev.Timestamp))
}

// handlePresenceUpdate applies a full participant snapshot: a join refresh
// followed by the reported position, when one is present.
func (s *Session) handlePresenceUpdate(ev PresenceEvent) {
	if s.isClosed() {
		return
	}
	ts := timeFromMillis(ev.Timestamp)
	s.roster.ApplyJoin(ev.UserID, ev.Username, ts)
	if ev.CurrentMessageID != "" {
		s.roster.ApplyScrollUpdate(ev.UserID, ev.CurrentMessageID, ts)
	}
}

// handleError logs and absorbs. Presence errors never break the primary
// conversation flow.
func (s *Session) handleError(err error) {
	s.logger.Warn("presence error", map[string]any{"error": err.Error()})
}
