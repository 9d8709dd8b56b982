package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidFullName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{"cyrillic", "Иванов Иван Иванович", true},
		{"latin", "John Smith", true},
		{"single word", "Иванов", true},
		{"empty", "", false},
		{"spaces only", "   ", false},
		{"digits", "Иванов 2-й", false},
		{"punctuation", "Иванов, Иван", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, validFullName(tc.input))
		})
	}
}

func TestValidTitle(t *testing.T) {
	assert.False(t, validTitle(""))
	assert.False(t, validTitle("аб"))
	assert.False(t, validTitle("  аб  "))
	assert.True(t, validTitle("абв"))
	assert.True(t, validTitle("Не работает принтер"))
}

func TestValidDescription(t *testing.T) {
	assert.False(t, validDescription("мало"))
	assert.False(t, validDescription("  мало  "))
	assert.True(t, validDescription("хватит"))
}

func TestIsImageName(t *testing.T) {
	assert.True(t, isImageName("photo.jpg"))
	assert.True(t, isImageName("SCREEN.PNG"))
	assert.True(t, isImageName("anim.webp"))
	assert.False(t, isImageName("report.pdf"))
	assert.False(t, isImageName("archive.tar.gz"))
	assert.False(t, isImageName("noext"))
}
