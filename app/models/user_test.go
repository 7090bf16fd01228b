package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserStartsWithDefaultCredits(t *testing.T) {
	u, err := NewUser("artist@example.com")
	require.NoError(t, err)

	assert.Equal(t, DefaultUserCredits, u.Credits)
	assert.Nil(t, u.EmailVerified)
}

func TestNewUserRejectsInvalidEmail(t *testing.T) {
	_, err := NewUser("not-an-email")
	assert.Error(t, err)
}

func TestUserValidateRejectsNegativeBalance(t *testing.T) {
	u := &User{Email: "a@example.com", Credits: -1}
	assert.Error(t, u.Validate())
}

func TestWebhookEventProcessingErrorText(t *testing.T) {
	ev := &WebhookEvent{}
	assert.Equal(t, "", ev.ProcessingErrorText())

	msg := "User with ID 42 not found"
	ev.ProcessingError = &msg
	assert.Equal(t, msg, ev.ProcessingErrorText())
}
