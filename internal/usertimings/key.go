package usertimings

import (
	"golang.org/x/text/unicode/norm"

	"tracefold/internal/event"
)

// Key identifies the two endpoints of one async interval.
type Key struct {
	Category string
	ID       string
	// Local ids are only unique within a process, so PID joins the key.
	Local bool
	PID   int64
	Name  string
}

// KeyOf derives the correlation key of an event. Names are NFC-normalized so
// that producers emitting different normal forms still pair.
func KeyOf(ev *event.Raw) Key {
	k := Key{
		Category: ev.Category,
		ID:       ev.ID.Value,
		Name:     norm.NFC.String(ev.Name),
	}
	if ev.ID.Local {
		k.Local = true
		k.PID = ev.PID
	}
	return k
}

// String renders the key as category:id:name.
func (k Key) String() string {
	return k.Category + ":" + k.ID + ":" + k.Name
}
