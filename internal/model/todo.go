package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is a server-assigned todo identifier. The backend issues numeric ids,
// but we keep them opaque.
type ID string

func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts both `"42"` and `42`.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id != "" {
		if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
			return []byte(id), nil
		}
	}
	return json.Marshal(string(id))
}

// Todo is the domain model for a todo entry as the server returns it.
type Todo struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// UnmarshalJSON maps a null description to "".
func (t *Todo) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          ID      `json:"id"`
		Title       string  `json:"title"`
		Description *string `json:"description"`
		Completed   bool    `json:"completed"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = Todo{ID: raw.ID, Title: raw.Title, Completed: raw.Completed}
	if raw.Description != nil {
		t.Description = *raw.Description
	}
	return nil
}

// Draft is the body sent on create and on full-record update.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Normalize trims the title. Description is left as typed.
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	return d
}

// DraftOf copies the mutable fields of t.
func DraftOf(t Todo) Draft {
	return Draft{Title: t.Title, Description: t.Description, Completed: t.Completed}
}
