package render

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCard() *models.Card {
	nums := []int{1, 2, 3, 10, 11, 12, 20, 21, 22, 30, 31, 32, 70, 75, 80}
	rows := map[int]int{}
	for i, n := range nums {
		rows[n] = i % 3
	}
	return &models.Card{ID: uuid.New(), Numbers: nums, Rows: rows, Marked: []int{11}}
}

func TestCardGrid(t *testing.T) {
	c := sampleCard()
	sess := &models.Session{Status: models.SessionStatusRunning, Drawn: []int{5, 11}}

	msg := Card(c, sess, nil)
	require.Len(t, msg.Buttons, models.Rows+1)
	for r := 0; r < models.Rows; r++ {
		assert.Len(t, msg.Buttons[r], models.Bands)
	}

	marks := 0
	for r := 0; r < models.Rows; r++ {
		for _, b := range msg.Buttons[r] {
			if id, n, ok := ParseMark(b.Data); ok {
				marks++
				assert.Equal(t, c.ID, id)
				assert.NotEqual(t, 11, n, "marked numbers have no mark action")
			}
		}
	}
	assert.Equal(t, 14, marks)
	assert.Contains(t, msg.Text, "1 of 15 marked")
	assert.Contains(t, msg.Text, "Last number: 11")
}

func TestCardWithPromo(t *testing.T) {
	msg := Card(sampleCard(), nil, &models.Promo{MediaRef: "photo-1", Caption: "Sponsored"})
	assert.Equal(t, "photo-1", msg.MediaRef)
	assert.True(t, strings.HasPrefix(msg.Text, "Sponsored"))
}

func TestInviteRoundTrip(t *testing.T) {
	link := InviteLink("lotto_bot", "ABCD2345")
	assert.Equal(t, "https://t.me/lotto_bot?start=game_ABCD2345", link)

	token, ok := ParseInvite("game_ABCD2345")
	assert.True(t, ok)
	assert.Equal(t, "ABCD2345", token)

	_, ok = ParseInvite("hello")
	assert.False(t, ok)
	_, ok = ParseInvite("game_")
	assert.False(t, ok)
}

func TestParseMark(t *testing.T) {
	id := uuid.New()
	gotID, n, ok := ParseMark(MarkData(id, 42))
	require.True(t, ok)
	assert.Equal(t, id, gotID)
	assert.Equal(t, 42, n)

	for _, bad := range []string{"mark", "mark:x:1", "mark:" + id.String() + ":81", "start:" + id.String()} {
		_, _, ok := ParseMark(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseStart(t *testing.T) {
	id := uuid.New()
	got, ok := ParseStart(StartData(id))
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = ParseStart("start:nope")
	assert.False(t, ok)
}
