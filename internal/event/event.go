package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Micro is a trace timestamp or duration in microseconds.
type Micro int64

// Duration converts the value to a time.Duration.
func (m Micro) Duration() time.Duration {
	return time.Duration(m) * time.Microsecond
}

// Millis returns the value in fractional milliseconds.
func (m Micro) Millis() float64 {
	return float64(m) / 1000
}

// UnmarshalJSON accepts integer and fractional numbers; fractions are rounded
// to the nearest microsecond.
func (m *Micro) UnmarshalJSON(data []byte) error {
	n, err := parseNumber(data)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*m = Micro(n)
	return nil
}

func parseNumber(data []byte) (int64, error) {
	text := string(bytes.TrimSpace(data))
	if text == "null" {
		return 0, nil
	}
	text = strings.Trim(text, `"`)
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("number %q out of range", text)
	}
	return int64(math.Round(f)), nil
}

// ID is the async scope identifier shared by the two endpoints of an interval.
type ID struct {
	Value string
	// Local is set for `id2.local` ids, which are only unique within a process.
	Local bool
}

// IsZero reports whether the event carried no scope id.
func (id ID) IsZero() bool { return id.Value == "" }

func (id ID) String() string { return id.Value }

// Raw is one decoded trace event. Handlers treat it as read-only.
type Raw struct {
	Phase     Phase
	Category  string
	Name      string
	Timestamp Micro
	Duration  *Micro
	PID       int64
	TID       int64
	ID        ID
	Scope     string
	Args      map[string]any
	// Seq is the arrival index within the stream.
	Seq uint64
}

// Kind classifies the event by its phase.
func (r *Raw) Kind() Kind {
	if r == nil {
		return KindOther
	}
	return r.Phase.Kind()
}

// End returns Timestamp+Duration for complete events, Timestamp otherwise.
func (r *Raw) End() Micro {
	if r.Duration == nil {
		return r.Timestamp
	}
	return r.Timestamp + *r.Duration
}

// Categories splits the comma-separated category list.
func (r *Raw) Categories() []string {
	if r.Category == "" {
		return nil
	}
	parts := strings.Split(r.Category, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Arg walks nested argument objects, e.g. Arg("data", "message").
func (r *Raw) Arg(path ...string) (any, bool) {
	if r == nil || r.Args == nil || len(path) == 0 {
		return nil, false
	}
	var cur any = r.Args
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ArgString returns the argument at path rendered as a string. Numbers keep
// their original textual form.
func (r *Raw) ArgString(path ...string) (string, bool) {
	v, ok := r.Arg(path...)
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

type wireID2 struct {
	Local  json.RawMessage `json:"local,omitempty"`
	Global json.RawMessage `json:"global,omitempty"`
}

type wireEvent struct {
	Phase     Phase           `json:"ph"`
	Category  string          `json:"cat,omitempty"`
	Name      string          `json:"name,omitempty"`
	Timestamp Micro           `json:"ts"`
	Duration  *Micro          `json:"dur,omitempty"`
	PID       json.RawMessage `json:"pid,omitempty"`
	TID       json.RawMessage `json:"tid,omitempty"`
	ID        json.RawMessage `json:"id,omitempty"`
	ID2       *wireID2        `json:"id2,omitempty"`
	Scope     string          `json:"s,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
}

// UnmarshalJSON decodes a Trace Event Format record. Numeric arguments are
// preserved as json.Number.
func (r *Raw) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Phase == "" {
		return fmt.Errorf("event %q has no phase", w.Name)
	}
	out := Raw{
		Phase:     w.Phase,
		Category:  w.Category,
		Name:      w.Name,
		Timestamp: w.Timestamp,
		Duration:  w.Duration,
		Scope:     w.Scope,
		Seq:       r.Seq,
	}
	var err error
	if out.PID, err = decodeInt(w.PID); err != nil {
		return fmt.Errorf("pid: %w", err)
	}
	if out.TID, err = decodeInt(w.TID); err != nil {
		return fmt.Errorf("tid: %w", err)
	}
	if out.ID, err = decodeID(w.ID, w.ID2); err != nil {
		return err
	}
	if len(w.Args) > 0 && string(w.Args) != "null" {
		dec := json.NewDecoder(bytes.NewReader(w.Args))
		dec.UseNumber()
		if err := dec.Decode(&out.Args); err != nil {
			return fmt.Errorf("args: %w", err)
		}
	}
	*r = out
	return nil
}

// MarshalJSON encodes the event back into Trace Event Format.
func (r Raw) MarshalJSON() ([]byte, error) {
	w := struct {
		Phase     Phase          `json:"ph"`
		Category  string         `json:"cat,omitempty"`
		Name      string         `json:"name,omitempty"`
		Timestamp Micro          `json:"ts"`
		Duration  *Micro         `json:"dur,omitempty"`
		PID       int64          `json:"pid"`
		TID       int64          `json:"tid"`
		ID        string         `json:"id,omitempty"`
		ID2       map[string]any `json:"id2,omitempty"`
		Scope     string         `json:"s,omitempty"`
		Args      map[string]any `json:"args,omitempty"`
	}{
		Phase:     r.Phase,
		Category:  r.Category,
		Name:      r.Name,
		Timestamp: r.Timestamp,
		Duration:  r.Duration,
		PID:       r.PID,
		TID:       r.TID,
		Scope:     r.Scope,
		Args:      r.Args,
	}
	if r.ID.Local {
		w.ID2 = map[string]any{"local": r.ID.Value}
	} else {
		w.ID = r.ID.Value
	}
	return json.Marshal(w)
}

func decodeInt(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	return parseNumber(raw)
}

func decodeID(id json.RawMessage, id2 *wireID2) (ID, error) {
	if len(id) > 0 {
		v, err := idText(id)
		if err != nil {
			return ID{}, fmt.Errorf("id: %w", err)
		}
		return ID{Value: v}, nil
	}
	if id2 == nil {
		return ID{}, nil
	}
	if len(id2.Global) > 0 {
		v, err := idText(id2.Global)
		if err != nil {
			return ID{}, fmt.Errorf("id2.global: %w", err)
		}
		return ID{Value: v}, nil
	}
	if len(id2.Local) > 0 {
		v, err := idText(id2.Local)
		if err != nil {
			return ID{}, fmt.Errorf("id2.local: %w", err)
		}
		return ID{Value: v, Local: true}, nil
	}
	return ID{}, nil
}

// idText keeps hex strings like "0x9072211" verbatim and renders numeric ids
// in decimal.
func idText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
