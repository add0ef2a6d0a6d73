package commands

import (
	"bytes"

	"github.com/goccy/go-json"

	"moviedb/pkg/apperr"
	"moviedb/pkg/models"
	"moviedb/pkg/validation"
)

// ID is an identifier parameter given either as a JSON number or as a
// numeric string. Both forms go through models.ParseID.
type ID struct {
	Value int64
	Set   bool
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	text := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
	}
	v, err := models.ParseID(text)
	if err != nil {
		return err
	}
	id.Value, id.Set = v, true
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if !id.Set {
		return []byte("null"), nil
	}
	return json.Marshal(id.Value)
}

type getAllMoviesParams struct {
	Genre  string             `json:"genre"`
	Query  string             `json:"query"`
	Filter *models.SortFilter `json:"filter"`
}

type getMovieParams struct {
	ID ID `json:"id"`
}

type createUserParams struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	IsAdmin  bool   `json:"isAdmin"`
}

type deleteUserParams struct {
	Username string `json:"username" validate:"required"`
}

type deleteDatasetUserParams struct {
	ID ID `json:"id"`
}

type deleteTagParams struct {
	MovieID   ID     `json:"movieId"`
	UserID    ID     `json:"userId"`
	Timestamp *int64 `json:"timestamp" validate:"required"`
}

type loginParams struct {
	User models.Credentials `json:"user"`
}

// decode unmarshals params into dst and validates it. Empty params decode
// as an empty object.
func decode(op string, params []byte, dst any) error {
	params = bytes.TrimSpace(params)
	if len(params) == 0 || bytes.Equal(params, []byte("null")) {
		params = []byte("{}")
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return apperr.Validation(op, "invalid params: %s", err.Error())
	}
	if err := validation.Struct(dst); err != nil {
		return apperr.Validation(op, "%s", err.Error())
	}
	return nil
}

func requireID(op, name string, id ID) (int64, error) {
	if !id.Set {
		return 0, apperr.Validation(op, "%s is required", name)
	}
	return id.Value, nil
}
