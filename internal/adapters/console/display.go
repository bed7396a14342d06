package console

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/light-analyzer/internal/domain"
)

// Display renders session output as text, one block per update.
// It is not safe for concurrent use; drive it through a ports.Dispatcher.
type Display struct {
	out io.Writer
}

// NewDisplay writes to out.
func NewDisplay(out io.Writer) *Display {
	return &Display{out: out}
}

// OnUpdate prints the running count and the latest reading.
func (d *Display) OnUpdate(count uint64, lux float32) {
	_, err := fmt.Fprintf(d.out,
		"\nLight--\nNumber of readings: %d\nAmbient light level (lux): %s (%s)\n",
		count, domain.FormatLux(lux), domain.LightCategory(lux))
	if err != nil {
		log.Warn().Err(err).Msg("failed to render light reading")
	}
}

// OnNotice prints a notice line.
func (d *Display) OnNotice(message string) {
	if _, err := fmt.Fprintf(d.out, "* %s\n", message); err != nil {
		log.Warn().Err(err).Msg("failed to render notice")
	}
}
