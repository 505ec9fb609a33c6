package diagnostics

import (
	"errors"

	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
	"github.com/coreman2200/funtimes-stripdriver/internal/led"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// TransmitFailed describes a frame the transport rejected.
func TransmitFailed(f led.Frame) Diagnostic {
	d := Diagnostic{
		Severity: Err,
		Code:     "TX.FAILED",
		Summary:  "Frame transmission failed",
		Evidence: map[string]any{
			"handle": f.Handle,
			"pin":    f.Pin,
			"seq":    f.Seq,
			"pixels": len(f.RGB) / 3,
		},
	}
	if f.Err != nil {
		d.Detail = f.Err.Error()
	}
	switch {
	case errors.Is(f.Err, led.ErrSPIResize):
		d.LikelyCauses = []string{"channel reconfigured with a different pixel count"}
		d.SuggestedFixes = []string{"restart the driver after changing pixels"}
	case errors.Is(f.Err, led.ErrNoPort):
		d.LikelyCauses = []string{"channel has no spi_port"}
		d.SuggestedFixes = []string{"set spi_port for every channel or use transport: bitbang"}
	default:
		d.LikelyCauses = []string{"data pin not exported or busy", "SPI device missing"}
		d.SuggestedFixes = []string{"check the pin name against gpioreg", "run as a user with GPIO access"}
	}
	return d
}

// ChannelConfigured reports a channel coming up.
func ChannelConfigured(ch *channel.Channel) Diagnostic {
	return Diagnostic{
		Severity: Info,
		Code:     "CHANNEL.UP",
		Summary:  "Channel configured",
		Evidence: map[string]any{
			"handle":     ch.Handle(),
			"pin":        ch.PinName(),
			"pixels":     ch.Len(),
			"brightness": ch.Brightness(),
		},
	}
}

// ConfigureFailed reports a channel that could not be set up.
func ConfigureFailed(h channel.Handle, pin string, err error) Diagnostic {
	d := Diagnostic{
		Severity: Err,
		Code:     "CHANNEL.CONFIG",
		Summary:  "Channel configuration rejected",
		Detail:   err.Error(),
		Evidence: map[string]any{"handle": h, "pin": pin},
	}
	switch {
	case errors.Is(err, channel.ErrUnknownPin):
		d.SuggestedFixes = []string{"use a pin name known to the host, e.g. GPIO18 or PD4"}
	case errors.Is(err, channel.ErrZeroPixels), errors.Is(err, channel.ErrAllocation):
		d.SuggestedFixes = []string{"set pixels between 1 and 65535"}
	}
	return d
}

// ProgramState reports a player state change.
func ProgramState(h channel.Handle, state string) Diagnostic {
	return Diagnostic{
		Severity: Info,
		Code:     "PROGRAM." + state,
		Summary:  "Program " + state,
		Evidence: map[string]any{"handle": h},
	}
}
