package presence

// AvatarStack is the render projection for one message: the first few viewers
// plus an overflow count for a "+K more" badge.
type AvatarStack struct {
	Viewers  []Participant
	Overflow int
}

// StackFor projects the roster onto an avatar stack for one message.
// maxVisible <= 0 means no limit.
func StackFor(r *Roster, messageID string, maxVisible int) AvatarStack {
	viewers := r.ViewersOf(messageID)
	if maxVisible <= 0 || len(viewers) <= maxVisible {
		return AvatarStack{Viewers: viewers}
	}
	return AvatarStack{
		Viewers:  viewers[:maxVisible],
		Overflow: len(viewers) - maxVisible,
	}
}
