package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	sels, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, []Selector{
		{Direction: Render, Role: Console, Period: 0},
		{Direction: Capture, Role: Communications, Period: 0},
	}, sels)

	sels, err = Parse([]string{})
	require.NoError(t, err)
	assert.Len(t, sels, 2)
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Selector
	}{
		{"eRender,eConsole,480", Selector{Render, Console, 480}},
		{"ECAPTURE,ECOMMUNICATIONS", Selector{Capture, Communications, 0}},
		{"eall,emultimedia,128", Selector{All, Multimedia, 128}},
		{"1,2,96", Selector{Capture, Communications, 96}},
		{"erender,econsole,notanumber", Selector{Render, Console, 0}},
		{"erender,econsole,-5", Selector{Render, Console, 0}},
		{"erender", Selector{Render, Console, 0}},
		{" ecapture , econsole , 144 ", Selector{Capture, Console, 144}},
		{"erender,econsole,480,x", Selector{Render, Console, 480}},
		{"erender,econsole,,96", Selector{Render, Console, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			sels, err := Parse([]string{tt.in})
			require.NoError(t, err)
			require.Len(t, sels, 1)
			assert.Equal(t, tt.want, sels[0])
		})
	}
}

func TestParseKeepsOrder(t *testing.T) {
	sels, err := Parse([]string{"ecapture,econsole", "erender,emultimedia,240"})
	require.NoError(t, err)
	assert.Equal(t, []Selector{
		{Capture, Console, 0},
		{Render, Multimedia, 240},
	}, sels)
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"bogus,econsole", "erender,bogus", "3,econsole", "erender,9"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse([]string{"erender,econsole", in})
			assert.ErrorIs(t, err, ErrInvalidSelector)
		})
	}
}

func TestSelectorString(t *testing.T) {
	assert.Equal(t, "eRender,eConsole,480", Selector{Render, Console, 480}.String())
	assert.Equal(t, "Direction(7)", Direction(7).String())
	assert.Equal(t, "Role(9)", Role(9).String())
}
