package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dmitrijs2005/blogclient/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_UnmarshalAcceptsBothIDKeys(t *testing.T) {
	var a, b User
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u1","username":"ann","role":"author"}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"u2","username":"bob","role":"reader"}`), &b))

	assert.Equal(t, "u1", a.ID)
	assert.True(t, a.CanAuthor())
	assert.Equal(t, "u2", b.ID)
	assert.False(t, b.CanAuthor())
}

func TestRegisterForm_Validate(t *testing.T) {
	tests := []struct {
		name    string
		form    RegisterForm
		wantErr string
	}{
		{"missing fields", RegisterForm{Email: "a@x.com"}, "required"},
		{"bad email", RegisterForm{Username: "a", Email: "nope", Password: "secret1", ConfirmPassword: "secret1"}, "not valid"},
		{"mismatch", RegisterForm{Username: "a", Email: "a@x.com", Password: "secret1", ConfirmPassword: "secret2"}, "do not match"},
		{"short", RegisterForm{Username: "a", Email: "a@x.com", Password: "abc", ConfirmPassword: "abc"}, "at least 6"},
		{"admin role", RegisterForm{Username: "a", Email: "a@x.com", Password: "secret1", ConfirmPassword: "secret1", Role: RoleAdmin}, "cannot be chosen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	ok := RegisterForm{Username: " ann ", Email: "a@x.com", Password: "secret1", ConfirmPassword: "secret1"}
	require.NoError(t, ok.Validate())
	assert.Equal(t, RoleReader, ok.Role)
	assert.Equal(t, "ann", ok.Username)

	data, err := json.Marshal(ok.Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"ann","email":"a@x.com","password":"secret1","role":"reader"}`, string(data))
}

func TestProfileUpdate_Validate(t *testing.T) {
	require.ErrorIs(t, ProfileUpdate{}.Validate(), common.ErrValidation)

	blank := "  "
	require.ErrorIs(t, ProfileUpdate{Username: &blank}.Validate(), common.ErrValidation)

	long := strings.Repeat("x", MaxBioLength+1)
	require.ErrorIs(t, ProfileUpdate{Bio: &long}.Validate(), common.ErrValidation)

	bio := "hello"
	require.NoError(t, ProfileUpdate{Bio: &bio}.Validate())
}

func TestCommentInput_Validate(t *testing.T) {
	require.ErrorIs(t, CommentInput{Content: " \n\t", Blog: "b1"}.Validate(), common.ErrValidation)
	require.ErrorIs(t, CommentInput{Content: "hi"}.Validate(), common.ErrValidation)
	require.NoError(t, CommentInput{Content: "hi", Blog: "b1"}.Validate())
}

func TestEngagementStatus_NullLikeType(t *testing.T) {
	var s EngagementStatus
	require.NoError(t, json.Unmarshal([]byte(`{"isLiked":false,"likeType":null,"likeCount":3}`), &s))
	assert.Equal(t, LikeNone, s.LikeType)
	assert.Equal(t, "none", s.LikeType.String())
	assert.Equal(t, 3, s.LikeCount)
	assert.False(t, LikeNone.Valid())
	assert.True(t, LikeDislike.Valid())
}
