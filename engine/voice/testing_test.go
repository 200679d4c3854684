package voice

import qt "github.com/frankban/quicktest"

// assertSameVoices checks got holds exactly the want pointers, in order.
func assertSameVoices(c *qt.C, got []*Voice, want ...*Voice) {
	c.Helper()
	c.Assert(got, qt.HasLen, len(want))
	for i := range want {
		c.Assert(got[i], qt.Equals, want[i], qt.Commentf("voice %d", i))
	}
}

type fakeOwner struct {
	id         uint32
	priority   Priority
	unassigned []*Voice
}

func (o *fakeOwner) ID() uint32               { return o.id }
func (o *fakeOwner) VoicePriority() Priority  { return o.priority }
func (o *fakeOwner) VoiceUnassigned(v *Voice) { o.unassigned = append(o.unassigned, v) }

// oldestCuller steals the lowest-ID voice.
type oldestCuller struct {
	pool   *Pool
	prefer bool
	calls  int
}

func (c *oldestCuller) PreferCulling() bool { return c.prefer }

func (c *oldestCuller) CullVoice(save, _ bool) *Voice {
	c.calls++
	var oldest *Voice
	for v := range c.pool.All() {
		if oldest == nil || v.ID < oldest.ID {
			oldest = v
		}
	}
	if oldest == nil {
		return nil
	}
	c.pool.Unassign(oldest, true, !save)
	if !save {
		return nil
	}
	return oldest
}
