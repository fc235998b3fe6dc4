package resolver

import (
	"fmt"
	"strings"
	"time"
)

// DefaultNotePrefixLength is the length of the fixed text ("Travel charge for ")
// the bank puts in front of the travel date in a transit transaction's note.
const DefaultNotePrefixLength = 18

const noteDateFormat = "Monday, 2 Jan"

// TravelNote is the travel date carried in a transaction note. The note has
// no year.
type TravelNote struct {
	Weekday time.Weekday
	Day     int
	Month   time.Month
}

func (n TravelNote) String() string {
	return fmt.Sprintf("%s, %d %s", n.Weekday, n.Day, n.Month.String()[:3])
}

// NoteFormatError reports a note that does not carry a travel date.
type NoteFormatError struct {
	Note string
	Err  error
}

func (e *NoteFormatError) Error() string {
	return fmt.Sprintf("note %q has no travel date: %v", e.Note, e.Err)
}

func (e *NoteFormatError) Unwrap() error { return e.Err }

// ParseNote reads "<prefix><weekday>, <day> <month>" where prefix is
// prefixLength bytes of arbitrary text, e.g. "Travel charge for Friday, 10 May".
// The weekday must be a valid name but is not checked against the date.
func ParseNote(note string, prefixLength int) (TravelNote, error) {
	if prefixLength < 0 {
		return TravelNote{}, &NoteFormatError{Note: note, Err: fmt.Errorf("negative prefix length %d", prefixLength)}
	}
	if len(note) <= prefixLength {
		return TravelNote{}, &NoteFormatError{Note: note, Err: fmt.Errorf("shorter than %d byte prefix", prefixLength)}
	}
	fragment := note[prefixLength:]

	t, err := time.Parse(noteDateFormat, fragment)
	if err != nil {
		return TravelNote{}, &NoteFormatError{Note: note, Err: err}
	}

	// time.Parse validates the weekday name but discards it.
	weekday, err := parseWeekday(fragment)
	if err != nil {
		return TravelNote{}, &NoteFormatError{Note: note, Err: err}
	}

	return TravelNote{Weekday: weekday, Day: t.Day(), Month: t.Month()}, nil
}

func parseWeekday(fragment string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		if len(fragment) >= len(name) && strings.EqualFold(fragment[:len(name)], name) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday in %q", fragment)
}
