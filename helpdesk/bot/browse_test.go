package bot

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdeskbot/helpdesk/models"
)

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Новая", statusLabel(models.StatusNew))
	assert.Equal(t, "В работе", statusLabel(models.StatusInProgress))
	assert.Equal(t, "Решена", statusLabel(models.StatusResolved))
	assert.Equal(t, "Неактуальна", statusLabel(models.StatusIrrelevant))
	assert.Equal(t, "Закрыта", statusLabel(models.StatusClosed))
	assert.Equal(t, "Закрыта", statusLabel("something_else"))
}

func demoTickets(n int) []models.Ticket {
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	tickets := make([]models.Ticket, 0, n)
	for i := 0; i < n; i++ {
		tickets = append(tickets, models.Ticket{
			ID:        int64(i + 1),
			Title:     fmt.Sprintf("Заявка %d", i+1),
			Status:    models.StatusNew,
			CreatedAt: created,
		})
	}
	return tickets
}

func TestTicketsKeyboardFirstPage(t *testing.T) {
	markup := ticketsKeyboard(demoTickets(7), 0)

	// Three ticket rows plus the navigation row.
	require.Len(t, markup.InlineKeyboard, 4)

	nav := markup.InlineKeyboard[3]
	require.Len(t, nav, 2, "first page has no back button")
	assert.Contains(t, nav[0].Text, "1/3")
	assert.Equal(t, "Вперед ▶️", nav[1].Text)
}

func TestTicketsKeyboardMiddlePage(t *testing.T) {
	markup := ticketsKeyboard(demoTickets(7), 1)

	require.Len(t, markup.InlineKeyboard, 4)
	nav := markup.InlineKeyboard[3]
	require.Len(t, nav, 3)
	assert.Equal(t, "◀️ Назад", nav[0].Text)
	assert.Contains(t, nav[1].Text, "2/3")
	assert.Equal(t, "Вперед ▶️", nav[2].Text)
}

func TestTicketsKeyboardLastPartialPage(t *testing.T) {
	markup := ticketsKeyboard(demoTickets(7), 2)

	// One remaining ticket plus the navigation row.
	require.Len(t, markup.InlineKeyboard, 2)
	nav := markup.InlineKeyboard[1]
	require.Len(t, nav, 2, "last page has no forward button")
	assert.Equal(t, "◀️ Назад", nav[0].Text)
	assert.Contains(t, nav[1].Text, "3/3")
}

func TestTicketsKeyboardTruncatesLongTitles(t *testing.T) {
	long := "Очень длинное название заявки, которое не помещается в кнопку"
	markup := ticketsKeyboard([]models.Ticket{{
		ID:        1,
		Title:     long,
		Status:    models.StatusNew,
		CreatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}}, 0)

	require.NotEmpty(t, markup.InlineKeyboard)
	label := markup.InlineKeyboard[0][0].Text
	assert.Contains(t, label, "...")
	assert.NotContains(t, label, long)
}
