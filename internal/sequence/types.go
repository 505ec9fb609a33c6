package sequence

import "github.com/coreman2200/funtimes-stripdriver/internal/channel"

// Keyframe is a value at tick T. Ease applies to the segment starting at
// this keyframe.
type Keyframe struct {
	T    float64 `yaml:"t" json:"t"`
	V    float64 `yaml:"v" json:"v"`
	Ease string  `yaml:"ease,omitempty" json:"ease,omitempty"` // "linear","smooth","cubic"
}

// Envelope is a list of keyframes sorted by T.
type Envelope struct {
	Keys []Keyframe `yaml:"keys" json:"keys"`
}

// Clip runs one effect on the player's channel for DurationTicks player
// ticks. A zero duration runs forever.
type Clip struct {
	Name          string
	Effect        string
	Color         channel.Pixel
	Speed         uint16
	Width         uint16
	Position      int
	Brightness    uint8
	DurationTicks int
	// Fade drives the channel brightness over the clip, keyed by clip tick.
	Fade Envelope
}

// Program is a sequence of clips for one channel.
type Program struct {
	Version string
	Loop    bool
	Clips   []Clip
}

// PlayerState enumerates sequencer states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Invoker runs effects on channels. *animation.Scheduler satisfies it.
type Invoker interface {
	Rainbow(h channel.Handle, speed uint16) bool
	RainbowCycle(h channel.Handle, speed uint16) bool
	Rainbows(h channel.Handle, speed, width uint16) bool
	TheaterChase(h channel.Handle, r, g, b uint8, speed uint16) bool
	ColorWipe(h channel.Handle, r, g, b uint8, speed uint16) bool
	Pulse(h channel.Handle, r, g, b uint8, speed uint16) bool
	Flash(h channel.Handle, speed uint16, brightness uint8) bool

	Off(h channel.Handle)
	Red(h channel.Handle, brightness uint8)
	Green(h channel.Handle, brightness uint8)
	Blue(h channel.Handle, brightness uint8)
	Fill(h channel.Handle, r, g, b uint16)
	SinglePixel(h channel.Handle, pos int, r, g, b uint8)

	Brightness(h channel.Handle) uint8
	SetBrightness(h channel.Handle, level uint8)
	SendChannel(h channel.Handle) error
}

// Player owns the program of one channel and drives it through an Invoker.
type Player struct {
	State PlayerState

	handle  channel.Handle
	inv     Invoker
	prog    Program
	idx     int // current clip
	local   int // ticks spent in the current clip
	painted bool

	// Brightness saved when a fade took over the channel.
	fading bool
	base   uint8
	level  uint8
}
