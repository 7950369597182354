package forms

import (
	stderrors "errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleForm struct {
	Username string `form:"username" binding:"required,max=150,username"`
	Email    string `form:"email" binding:"required,mailaddr"`
	Nick     string `form:"nick" binding:"max=5"`
}

func TestFromBindingUsesFormNames(t *testing.T) {
	RegisterValidators()

	err := binding.Validator.ValidateStruct(&sampleForm{Username: "", Email: "invalidemail", Nick: "toolong"})
	require.Error(t, err)

	fe := FromBinding(err)
	assert.Equal(t, []string{MsgRequired}, fe.Get("username"))
	assert.Equal(t, []string{MsgInvalidEmail}, fe.Get("email"))
	assert.Equal(t, "Ensure this value has at most 5 characters (it has 7).", fe.First("nick"))
}

func TestFromBindingUsernamePattern(t *testing.T) {
	RegisterValidators()

	err := binding.Validator.ValidateStruct(&sampleForm{Username: "bad name!", Email: "a@example.com"})
	fe := FromBinding(err)

	assert.Equal(t, MsgInvalidUsername, fe.First("username"))
	assert.False(t, fe.Has("email"))
}

func TestFromBindingOtherError(t *testing.T) {
	fe := FromBinding(stderrors.New("malformed body"))
	assert.Equal(t, "malformed body", fe.First(NonFieldKey))
	assert.True(t, fe.Any())
	assert.False(t, FromBinding(nil).Any())
}

func TestFieldErrorsMerge(t *testing.T) {
	a := FieldErrors{}
	a.Add("username", "one")
	b := FieldErrors{}
	b.Add("username", "two")
	b.Add("bio", "three")

	a.Merge(b)
	assert.Equal(t, []string{"one", "two"}, a.Get("username"))
	assert.Equal(t, "three", a.First("bio"))
	assert.Equal(t, "", a.First("email"))
}

func TestValidEmail(t *testing.T) {
	valid := []string{"alice@example.com", "first.last+tag@sub.example.org"}
	invalid := []string{"", "invalidemail", "a@b", "alice@example.", "Alice <alice@example.com>", "a b@example.com", "@example.com", "alice@@example.com", "alice@exa mple.com"}

	for _, e := range valid {
		assert.True(t, ValidEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, ValidEmail(e), e)
	}
}

func TestValidUsername(t *testing.T) {
	assert.True(t, ValidUsername("alice.b+c@d-e_f"))
	assert.False(t, ValidUsername("alice bob"))
	assert.False(t, ValidUsername(""))
}
