package presence

import "encoding/json"

// Dispatcher routes incoming presence events to registered callbacks.
// Unrecognized event types are ignored for forward compatibility; malformed
// frames are reported through the error callback and dropped, never thrown.
type Dispatcher struct {
	onPresenceUpdate func(PresenceEvent)
	onUserJoined     func(UserEvent)
	onUserLeft       func(UserEvent)
	onScrollUpdate   func(ScrollEvent)
	onError          func(error)
}

func (d *Dispatcher) SetOnPresenceUpdate(fn func(PresenceEvent)) { d.onPresenceUpdate = fn }
func (d *Dispatcher) SetOnUserJoined(fn func(UserEvent))         { d.onUserJoined = fn }
func (d *Dispatcher) SetOnUserLeft(fn func(UserEvent))           { d.onUserLeft = fn }
func (d *Dispatcher) SetOnScrollUpdate(fn func(ScrollEvent))     { d.onScrollUpdate = fn }
func (d *Dispatcher) SetOnError(fn func(error))                  { d.onError = fn }

func (d *Dispatcher) Dispatch(data json.RawMessage) {
	var probe struct {
		Type  string `json:"type"`
		Error *Error `json:"error,omitempty"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		d.fireError(WrapError(ErrorMalformedEvent, "failed to decode event frame", err))
		return
	}

	switch probe.Type {
	case eventError:
		if probe.Error != nil {
			d.fireError(FromProtocolError(probe.Error))
		}
	case eventPresenceUpdate:
		var ev PresenceEvent
		if err := UnmarshalData(data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal presence_update event", err))
			return
		}
		if ev.UserID == "" {
			d.fireError(NewError(ErrorMalformedEvent, "presence_update without user_id"))
			return
		}
		if d.onPresenceUpdate != nil {
			d.onPresenceUpdate(ev)
		}
	case eventUserJoined:
		ev, ok := d.userEvent(data, "user_joined")
		if ok && d.onUserJoined != nil {
			d.onUserJoined(ev)
		}
	case eventUserLeft:
		ev, ok := d.userEvent(data, "user_left")
		if ok && d.onUserLeft != nil {
			d.onUserLeft(ev)
		}
	case eventScrollUpdate, eventScrollPositionUpdate:
		var ev ScrollEvent
		if err := UnmarshalData(data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal scroll event", err))
			return
		}
		if ev.UserID == "" {
			d.fireError(NewError(ErrorMalformedEvent, "scroll event without user_id"))
			return
		}
		if d.onScrollUpdate != nil {
			d.onScrollUpdate(ev)
		}
	default:
		// Unknown type: ignored, forward-compatible.
	}
}

func (d *Dispatcher) userEvent(data json.RawMessage, kind string) (UserEvent, bool) {
	var ev UserEvent
	if err := UnmarshalData(data, &ev); err != nil {
		d.fireError(WrapError(ErrorSerialization, "failed to unmarshal "+kind+" event", err))
		return ev, false
	}
	if ev.UserID == "" {
		d.fireError(NewError(ErrorMalformedEvent, kind+" without user_id"))
		return ev, false
	}
	return ev, true
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}
