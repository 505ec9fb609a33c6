package animation

// Family identifies an effect whose cursor is tracked separately.
type Family int

const (
	FamilyRainbow Family = iota
	FamilyRainbowCycle
	FamilyRainbows
	FamilyTheaterChase
	FamilyColorWipe
	FamilyPulse
	FamilyFlash
	numFamilies
)

var familyNames = [numFamilies]string{
	"rainbow", "rainbow_cycle", "rainbows", "theater_chase", "color_wipe", "pulse", "flash",
}

func (f Family) String() string {
	if f < 0 || f >= numFamilies {
		return "unknown"
	}
	return familyNames[f]
}

// ParseFamily maps a name as returned by String back to its Family.
func ParseFamily(name string) (Family, bool) {
	for i, n := range familyNames {
		if n == name {
			return Family(i), true
		}
	}
	return 0, false
}

// Cursor is the position of one effect on one channel.
type Cursor struct {
	Pos int
	// Dir is the pulse direction, +1 rising and -1 falling.
	Dir int
	// Last is the tick of the last frame.
	Last  uint32
	fired bool
}

// due reports whether speed ticks have passed since the last frame. A cursor
// that never fired is always due.
func (c *Cursor) due(now uint32, speed uint16) bool {
	if !c.fired {
		return true
	}
	return now-c.Last >= uint32(speed)
}

func (c *Cursor) stamp(now uint32) {
	c.Last = now
	c.fired = true
}

// wrap advances the cursor by one, modulo period.
func (c *Cursor) wrap(period int) {
	c.Pos++
	if c.Pos >= period {
		c.Pos = 0
	}
}

// bounce moves the cursor one step between 0 and 255, flipping at the ends.
func (c *Cursor) bounce() {
	if c.Dir == 0 {
		c.Dir = 1
	}
	c.Pos += c.Dir
	switch {
	case c.Pos >= 255:
		c.Pos = 255
		c.Dir = -1
	case c.Pos <= 0:
		c.Pos = 0
		c.Dir = 1
	}
}

// State holds every effect cursor of one channel.
type State struct {
	cursors [numFamilies]Cursor
}
