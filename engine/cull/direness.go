package cull

// Direness tracks sustained overload as a small integer. It rises as soon
// as windows grow past the threshold and falls by one step per decay
// interval once they shrink well below it, so a single quiet window does
// not undo the pressure built up by a run of heavy ones.
type Direness struct {
	level     int
	changedAt uint32
}

// Level returns the current direness.
func (d *Direness) Level() int { return d.level }

// Update folds one window of numSamples frames rendered at time now.
func (d *Direness) Update(cfg *Config, numSamples int, now uint32) {
	threshold := cfg.Threshold()
	switch {
	case numSamples >= threshold:
		level := min(numSamples-(threshold-1), cfg.MaxDireness)
		if level >= d.level {
			d.level = level
			d.changedAt = now
		}
	case numSamples < threshold-cfg.DecayMargin:
		if now-d.changedAt >= cfg.DecayInterval {
			d.changedAt = now
			d.level = max(d.level-1, 0)
		}
	}
}
