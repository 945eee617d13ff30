package models

import (
	"bytes"
	"encoding/json"
)

// The remote service returns references either populated (a JSON object) or
// as a bare id string, depending on the endpoint. The Ref types below accept
// both shapes.

// Ref is a reference that is only ever used by id.
type Ref struct {
	ID string
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	var obj struct {
		ID    string `json:"_id"`
		AltID string `json:"id"`
	}
	id, err := decodeRef(data, &obj)
	if err != nil {
		return err
	}
	r.ID = firstNonEmpty(id, obj.ID, obj.AltID)
	return nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// AuthorRef is the user summary embedded in blogs and comments.
type AuthorRef struct {
	ID       string
	Username string
	Avatar   string
}

func (a *AuthorRef) UnmarshalJSON(data []byte) error {
	var obj struct {
		ID       string `json:"_id"`
		AltID    string `json:"id"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	}
	id, err := decodeRef(data, &obj)
	if err != nil {
		return err
	}
	*a = AuthorRef{ID: firstNonEmpty(id, obj.ID, obj.AltID), Username: obj.Username, Avatar: obj.Avatar}
	return nil
}

func (a AuthorRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string `json:"_id"`
		Username string `json:"username,omitempty"`
		Avatar   string `json:"avatar,omitempty"`
	}{a.ID, a.Username, a.Avatar})
}

// CategoryRef is the category summary embedded in blogs.
type CategoryRef struct {
	ID    string
	Name  string
	Color string
}

func (c *CategoryRef) UnmarshalJSON(data []byte) error {
	var obj struct {
		ID    string `json:"_id"`
		AltID string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	id, err := decodeRef(data, &obj)
	if err != nil {
		return err
	}
	*c = CategoryRef{ID: firstNonEmpty(id, obj.ID, obj.AltID), Name: obj.Name, Color: obj.Color}
	return nil
}

func (c CategoryRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    string `json:"_id"`
		Name  string `json:"name,omitempty"`
		Color string `json:"color,omitempty"`
	}{c.ID, c.Name, c.Color})
}

// decodeRef returns the id when data is a JSON string, otherwise it decodes
// the object into obj and returns "". null decodes to nothing.
func decodeRef(data []byte, obj any) (string, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		err := json.Unmarshal(data, &id)
		return id, err
	}
	return "", json.Unmarshal(data, obj)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
