package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type accountReq struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,max=72"`
	Note     string `json:"-" validate:"omitempty,max=3"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(accountReq{Username: "alice", Password: "pw"}))
	assert.NoError(t, Struct(accountReq{Username: "movie_db.admin-2", Password: "pw"}))

	err := Struct(accountReq{Username: "", Password: ""})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "username is required")
		assert.Contains(t, err.Error(), "password is required")
	}

	err = Struct(accountReq{Username: "bob smith", Password: "pw"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "username must be 1-64 characters")
	}
}
