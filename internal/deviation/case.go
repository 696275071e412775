package deviation

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Field identifies one of the three pieces of information a deviation
// interaction has to collect.
type Field string

const (
	FieldCause Field = "cause"
	FieldRoute Field = "new_route"
	FieldETA   Field = "new_eta"
)

var etaPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// ValidETA reports whether s is a wall-clock time of the form HH:MM.
func ValidETA(s string) bool {
	return etaPattern.MatchString(s)
}

// Case is the record a deviation interaction fills in. Origin, Destination and
// AnomalyTime are fixed at creation; Cause, NewRoute and NewETA start empty
// and are adopted from extractions, first writer wins.
type Case struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	AnomalyTime string   `json:"anomaly_time"`
	Cause       string   `json:"cause,omitempty"`
	NewRoute    []string `json:"new_route,omitempty"`
	NewETA      string   `json:"new_eta,omitempty"`
}

func NewCase(origin, destination, anomalyTime string) *Case {
	return &Case{
		Origin:      origin,
		Destination: destination,
		AnomalyTime: anomalyTime,
	}
}

func (c *Case) Complete() bool {
	return len(c.Missing()) == 0
}

// Missing lists the unset fields in the fixed asking order.
func (c *Case) Missing() []Field {
	var missing []Field
	if c.Cause == "" {
		missing = append(missing, FieldCause)
	}
	if len(c.NewRoute) == 0 {
		missing = append(missing, FieldRoute)
	}
	if c.NewETA == "" {
		missing = append(missing, FieldETA)
	}
	return missing
}

// Adopt copies extracted values into fields that are still unset. Fields
// already set keep their first value. An ETA that does not match HH:MM is
// discarded and the field stays missing.
func (c *Case) Adopt(f Fields) {
	if c.Cause == "" && f.Cause != "" {
		c.Cause = f.Cause
	}
	if len(c.NewRoute) == 0 && len(f.NewRoute) > 0 {
		c.NewRoute = f.NewRoute
	}
	if c.NewETA == "" && ValidETA(f.NewETA) {
		c.NewETA = f.NewETA
	}
}

// Fields is the result of one extraction round. Zero values mean the driver's
// answer did not contain that piece of information.
type Fields struct {
	Cause    string
	NewRoute []string
	NewETA   string
}

// UnmarshalJSON accepts the model's extraction object. Missing or null keys
// stay zero, a new_route given as a comma-separated string is split into a
// sequence, and a new_eta not matching HH:MM is dropped.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw struct {
		Cause    *string         `json:"cause"`
		NewRoute json.RawMessage `json:"new_route"`
		NewETA   *string         `json:"new_eta"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Cause != nil {
		f.Cause = strings.TrimSpace(*raw.Cause)
	}

	if len(raw.NewRoute) > 0 && string(raw.NewRoute) != "null" {
		var list []string
		if err := json.Unmarshal(raw.NewRoute, &list); err == nil {
			f.NewRoute = cleanRoute(list)
		} else {
			var s string
			if err := json.Unmarshal(raw.NewRoute, &s); err == nil {
				f.NewRoute = SplitRoute(s)
			}
		}
	}

	if raw.NewETA != nil {
		eta := strings.TrimSpace(*raw.NewETA)
		if ValidETA(eta) {
			f.NewETA = eta
		}
	}

	return nil
}

func (f Fields) Empty() bool {
	return f.Cause == "" && len(f.NewRoute) == 0 && f.NewETA == ""
}

// SplitRoute turns a comma-separated list of place names into a sequence.
func SplitRoute(s string) []string {
	return cleanRoute(strings.Split(s, ","))
}

func cleanRoute(places []string) []string {
	var out []string
	for _, p := range places {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
