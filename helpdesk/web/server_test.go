package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkCall struct {
	ticketID   int64
	senderName string
	text       string
	chatID     string
	at         time.Time
}

type fakeSink struct {
	calls []sinkCall
	err   error
}

func (s *fakeSink) OnNewMessageFromWeb(_ context.Context, ticketID int64, senderName, text, chatID string, at time.Time) error {
	s.calls = append(s.calls, sinkCall{ticketID, senderName, text, chatID, at})
	return s.err
}

func postNotify(t *testing.T, sink *fakeSink, body string) *httptest.ResponseRecorder {
	t.Helper()
	s := New(":0", sink)
	req := httptest.NewRequest(http.MethodPost, "/internal/notify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestNotifyAccepted(t *testing.T) {
	sink := &fakeSink{}
	rec := postNotify(t, sink, `{
		"ticket_id": 7,
		"sender_name": "Оператор",
		"message": "Проверьте кабель",
		"chat_id": "100",
		"timestamp": "2026-03-10T12:00:00Z"
	}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, sink.calls, 1)
	call := sink.calls[0]
	assert.Equal(t, int64(7), call.ticketID)
	assert.Equal(t, "Оператор", call.senderName)
	assert.Equal(t, "Проверьте кабель", call.text)
	assert.Equal(t, "100", call.chatID)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), call.at.UTC())
}

func TestNotifyMissingFields(t *testing.T) {
	sink := &fakeSink{}
	rec := postNotify(t, sink, `{"ticket_id": 7}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sink.calls)
}

func TestNotifyMalformedBody(t *testing.T) {
	sink := &fakeSink{}
	rec := postNotify(t, sink, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sink.calls)
}

func TestNotifyBadTimestampFallsBack(t *testing.T) {
	sink := &fakeSink{}
	rec := postNotify(t, sink, `{
		"ticket_id": 7,
		"sender_name": "Оператор",
		"message": "Привет",
		"chat_id": "100",
		"timestamp": "вчера вечером"
	}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, sink.calls, 1)
	assert.True(t, sink.calls[0].at.IsZero(), "unparseable timestamp is passed through as zero")
}

func TestNotifySinkFailure(t *testing.T) {
	sink := &fakeSink{err: errors.New("db down")}
	rec := postNotify(t, sink, `{
		"ticket_id": 7,
		"sender_name": "Оператор",
		"message": "Привет",
		"chat_id": "100"
	}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "notification failed")
}

func TestHealthz(t *testing.T) {
	s := New(":0", &fakeSink{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
