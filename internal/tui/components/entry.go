package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/serialterm/internal/tui/styles"
)

// EntryKind tags a console log line.
type EntryKind int

const (
	EntryRX EntryKind = iota
	EntryTX
	EntryInfo
	EntryError
)

func (k EntryKind) String() string {
	switch k {
	case EntryRX:
		return "RX"
	case EntryTX:
		return "TX"
	case EntryError:
		return "ERR"
	default:
		return "INFO"
	}
}

// Entry is one line in the console log.
type Entry struct {
	Time time.Time
	Kind EntryKind
	Text string
}

// EntryFormatter renders entries with a timestamp and a styled indicator.
type EntryFormatter struct {
	ShowTimestamps bool
}

func (f EntryFormatter) Format(e Entry) string {
	var indicator string
	switch e.Kind {
	case EntryRX:
		indicator = styles.RXStyle.Render("↙ RX")
	case EntryTX:
		indicator = styles.TXStyle.Render("↗ TX")
	case EntryError:
		indicator = styles.ErrorStyle.Render("✗ ERR")
	default:
		indicator = styles.InfoStyle.Render("• INFO")
	}

	text := sanitize(e.Text)
	if !f.ShowTimestamps {
		return fmt.Sprintf("%s %s", indicator, text)
	}
	ts := styles.TimestampStyle.Render(fmt.Sprintf("[%s]", e.Time.Format("15:04:05.000")))
	return fmt.Sprintf("%s %s %s", ts, indicator, text)
}

// sanitize keeps device output from injecting terminal control sequences.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return '·'
		}
		return r
	}, s)
}
