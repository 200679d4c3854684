package voice

// Priority is the voice priority a sound asks for. Higher priorities are
// culled last.
type Priority uint8

// Voice priorities.
const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// Owner is the sound a voice plays for. The voice holds it as a plain
// back reference; the Pool owns the voice.
type Owner interface {
	ID() uint32
	VoicePriority() Priority
	// VoiceUnassigned is called once the voice has left the active index.
	VoiceUnassigned(v *Voice)
}

// Voice is one sounding note instance.
type Voice struct {
	ID    uint32
	Owner Owner

	Note     int
	Channel  int
	Velocity float64

	Env Envelope
	// Phase is the oscillator or sample playback cursor.
	Phase float64
	// Rendered is set once the voice has produced at least one window.
	Rendered bool
	// AssignedAt is the sample time the voice was solicited.
	AssignedAt uint32

	assigned bool
	overflow bool
}

// Assigned reports whether the voice is in use.
func (v *Voice) Assigned() bool { return v.assigned }

// NoteOn starts the voice playing a note.
func (v *Voice) NoteOn(note, channel int, velocity float64, now uint32) {
	v.Note = note
	v.Channel = channel
	v.Velocity = velocity
	v.Phase = 0
	v.Rendered = false
	v.Env.Start(now)
}

// NoteOff releases the voice.
func (v *Voice) NoteOff(now uint32) { v.Env.Release(now) }

// FastRelease pushes the voice into a short release tail. It returns false
// if the voice has never rendered, in which case there is nothing to fade
// and the caller should unassign it straight away.
func (v *Voice) FastRelease(now uint32, step float64) bool {
	if !v.Rendered {
		return false
	}

	v.Env.FastRelease(now, step)
	return true
}

// Done reports whether the envelope has finished.
func (v *Voice) Done() bool { return v.Env.Stage == StageOff }

// MatchesMPE reports whether the voice was started by note on channel.
// A negative channel matches any channel.
func (v *Voice) MatchesMPE(note, channel int) bool {
	return v.Note == note && (channel < 0 || v.Channel == channel)
}

func (v *Voice) reset(id uint32, owner Owner, now uint32) {
	overflow := v.overflow
	*v = Voice{ID: id, Owner: owner, AssignedAt: now, assigned: true, overflow: overflow}
}

// Rating returns how cullable v is; higher means cull sooner. From the
// most significant bits down: the envelope stage, so every releasing voice
// rates above every sounding one, then inverted sound priority, the
// number of voices its sound is playing (capped at 7), and the time spent
// in the stage (capped at 2^24-1 samples).
func Rating(v *Voice, voicesOfSound int, now uint32) uint32 {
	prio := PriorityLow
	if v.Owner != nil {
		prio = min(v.Owner.VoicePriority(), PriorityHigh)
	}

	r := uint32(min(v.Env.Stage, StageOff)) << 29
	r |= uint32(3-prio) << 27
	r |= uint32(min(max(voicesOfSound, 0), 7)) << 24
	r |= min(now-v.Env.EnteredAt, 0xFFFFFF)

	return r
}
