package bot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdeskbot/helpdesk/session"
	"helpdeskbot/helpdesk/storage"
)

func TestRegistrationWizardCommitsLastSubmittedValues(t *testing.T) {
	store := &fakeStore{}
	b, sessions := newTestBot(store)
	chatID := int64(100)

	start := newFakeContext(chatID, "/start")
	require.NoError(t, b.handleStart(start))
	assert.Equal(t, session.StateAwaitingConsent, sessions.GetState(chatID))

	require.NoError(t, b.cbConsentAgree(newFakeCallback(chatID, "gdpr_agree", "")))
	assert.Equal(t, session.StateAwaitingFullName, sessions.GetState(chatID))

	// A rejected value re-prompts without advancing; the accepted one wins.
	bad := newFakeContext(chatID, "Иванов И.И. 2-й")
	require.NoError(t, b.stepFullName(bad))
	assert.Equal(t, session.StateAwaitingFullName, sessions.GetState(chatID))
	assert.NotContains(t, sessions.Draft(chatID), draftFullName)

	require.NoError(t, b.stepFullName(newFakeContext(chatID, "Иванов Иван Иванович")))
	require.NoError(t, b.stepPosition(newFakeContext(chatID, "Врач-терапевт")))
	require.NoError(t, b.stepDepartment(newFakeContext(chatID, "Терапевтическое отделение")))
	require.NoError(t, b.stepOffice(newFakeContext(chatID, "214")))
	require.NoError(t, b.stepPhone(newFakeContext(chatID, "-")))

	final := newFakeContext(chatID, "ivanov@hospital.ru")
	require.NoError(t, b.stepEmail(final))

	require.Len(t, store.createdUsers, 1)
	nu := store.createdUsers[0]
	assert.Equal(t, "Иванов Иван Иванович", nu.FullName)
	assert.Equal(t, "Врач-терапевт", nu.Position)
	assert.Equal(t, "Терапевтическое отделение", nu.Department)
	assert.Equal(t, "214", nu.Office)
	assert.Empty(t, nu.Phone)
	assert.Equal(t, "ivanov@hospital.ru", nu.Email)
	assert.Equal(t, "100", nu.ChatID)
	assert.True(t, nu.PrivacyConsent)
	assert.False(t, nu.ConsentDate.IsZero())

	assert.Equal(t, session.StateIdle, sessions.GetState(chatID))
	assert.Empty(t, sessions.Draft(chatID))
	assert.Contains(t, final.lastSent(), "Регистрация успешно завершена")
}

func TestRegistrationDuplicateAborts(t *testing.T) {
	store := &fakeStore{createUserErr: storage.ErrUserExists}
	b, sessions := newTestBot(store)
	chatID := int64(101)

	sessions.SetDraft(chatID, draftFullName, "Петров Пётр")
	sessions.SetDraft(chatID, draftConsent, "true")
	sessions.SetState(chatID, session.StateAwaitingEmail)

	c := newFakeContext(chatID, "petrov@hospital.ru")
	require.NoError(t, b.stepEmail(c))

	assert.Empty(t, store.createdUsers)
	assert.Equal(t, session.StateIdle, sessions.GetState(chatID))
	assert.Empty(t, sessions.Draft(chatID))
	assert.Contains(t, c.lastSent(), "уже зарегистрирован")
}

func TestRegistrationCommitFailureKeepsDraft(t *testing.T) {
	store := &fakeStore{createUserErr: errors.New("connection refused")}
	b, sessions := newTestBot(store)
	chatID := int64(102)

	sessions.SetDraft(chatID, draftFullName, "Сидорова Анна")
	sessions.SetDraft(chatID, draftConsent, "true")
	sessions.SetState(chatID, session.StateAwaitingEmail)

	first := newFakeContext(chatID, "sidorova@hospital.ru")
	require.NoError(t, b.stepEmail(first))

	assert.Equal(t, session.StateAwaitingEmail, sessions.GetState(chatID))
	assert.Equal(t, "Сидорова Анна", sessions.Draft(chatID)[draftFullName])
	assert.Contains(t, first.lastSent(), "Попробуйте отправить email ещё раз")

	store.createUserErr = nil
	second := newFakeContext(chatID, "sidorova@hospital.ru")
	require.NoError(t, b.stepEmail(second))

	require.Len(t, store.createdUsers, 1)
	assert.Equal(t, "Сидорова Анна", store.createdUsers[0].FullName)
	assert.Equal(t, session.StateIdle, sessions.GetState(chatID))
}

func TestConsentCallbackRequiresFreshSession(t *testing.T) {
	b, sessions := newTestBot(&fakeStore{})
	chatID := int64(103)

	c := newFakeCallback(chatID, "gdpr_agree", "")
	require.NoError(t, b.cbConsentAgree(c))

	assert.Equal(t, session.StateIdle, sessions.GetState(chatID))
	assert.Contains(t, c.lastSent(), "Сессия устарела")
}

func TestConsentDeclineResetsSession(t *testing.T) {
	b, sessions := newTestBot(&fakeStore{})
	chatID := int64(104)
	sessions.SetState(chatID, session.StateAwaitingConsent)

	c := newFakeCallback(chatID, "gdpr_decline", "")
	require.NoError(t, b.cbConsentDecline(c))

	assert.Equal(t, session.StateIdle, sessions.GetState(chatID))
	assert.Contains(t, c.lastSent(), "Вы отказались от обработки персональных данных")
}
