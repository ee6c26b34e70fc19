package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// ApplicationEntry pairs a gamertag with its application.
type ApplicationEntry struct {
	Gamertag    string
	Application Application
}

// Applications maps gamertag to application and remembers insertion order.
// The zero value is not usable; use NewApplications.
type Applications struct {
	order []string
	byTag map[string]Application
}

// NewApplications returns an empty set.
func NewApplications() *Applications {
	return &Applications{byTag: make(map[string]Application)}
}

// Len returns the number of applications.
func (a *Applications) Len() int {
	return len(a.order)
}

// Get returns the application for gamertag.
func (a *Applications) Get(gamertag string) (Application, bool) {
	app, ok := a.byTag[gamertag]
	return app, ok
}

// Put inserts or updates the application for gamertag. An update keeps the
// original position.
func (a *Applications) Put(gamertag string, app Application) {
	if _, ok := a.byTag[gamertag]; !ok {
		a.order = append(a.order, gamertag)
	}
	a.byTag[gamertag] = app
}

// Delete removes gamertag and reports whether it was present.
func (a *Applications) Delete(gamertag string) bool {
	if _, ok := a.byTag[gamertag]; !ok {
		return false
	}
	delete(a.byTag, gamertag)
	a.order = slices.DeleteFunc(a.order, func(tag string) bool { return tag == gamertag })
	return true
}

// Range calls fn for each application in insertion order until fn returns false.
func (a *Applications) Range(fn func(gamertag string, app Application) bool) {
	for _, tag := range a.order {
		if !fn(tag, a.byTag[tag]) {
			return
		}
	}
}

// Entries returns all applications in insertion order.
func (a *Applications) Entries() []ApplicationEntry {
	out := make([]ApplicationEntry, 0, len(a.order))
	for _, tag := range a.order {
		out = append(out, ApplicationEntry{Gamertag: tag, Application: a.byTag[tag]})
	}
	return out
}

// WithStatus returns the gamertags whose application has status, in insertion order.
func (a *Applications) WithStatus(status Status) []string {
	var out []string
	for _, tag := range a.order {
		if a.byTag[tag].Status == status {
			out = append(out, tag)
		}
	}
	return out
}

// PendingFor reports whether requesterID has a pending application.
func (a *Applications) PendingFor(requesterID string) (string, bool) {
	for _, tag := range a.order {
		app := a.byTag[tag]
		if app.RequesterID == requesterID && app.Status == StatusPending {
			return tag, true
		}
	}
	return "", false
}

// MarshalJSON encodes the set as a JSON object with keys in insertion order.
func (a *Applications) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tag := range a.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(tag)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(a.byTag[tag])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
// A repeated key keeps its first position and its last value.
func (a *Applications) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("applications: expected object, got %v", tok)
	}

	a.order = nil
	a.byTag = make(map[string]Application)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		tag, ok := tok.(string)
		if !ok {
			return fmt.Errorf("applications: expected key, got %v", tok)
		}
		var app Application
		if err := dec.Decode(&app); err != nil {
			return fmt.Errorf("applications: gamertag %q: %w", tag, err)
		}
		a.Put(tag, app)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
