package timestamp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ref = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestFromUnix(t *testing.T) {
	assert.Equal(t, int64(1717243200), FromUnix(1717243200).Unix())
	assert.Equal(t, int64(1717243200), FromUnix(1717243200000).Unix())
	assert.Equal(t, int64(9999999999), FromUnix(9999999999).Unix())
}

func TestParseUnix(t *testing.T) {
	tm, err := ParseUnix(" 1717243200abc")
	require.NoError(t, err)
	assert.True(t, tm.Equal(ref))

	tm, err = ParseUnix("1717243200123")
	require.NoError(t, err)
	assert.Equal(t, int64(1717243200123), tm.UnixMilli())

	for _, bad := range []string{"", "abc", "-", "+x"} {
		_, err := ParseUnix(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormat(t *testing.T) {
	tm := ref.Add(250 * time.Millisecond)
	f := Format(tm, Options{
		Location: time.UTC,
		Strftime: "%Y/%m/%d %H:%M",
		Now:      ref.Add(3 * time.Hour),
	})

	assert.Equal(t, int64(1717243200), f.Unix)
	assert.Equal(t, int64(1717243200250), f.Millis)
	assert.Equal(t, "2024-06-01T12:00:00.250Z", f.ISO)
	assert.Equal(t, "Sat, 01 Jun 2024 12:00:00 GMT", f.UTC)
	assert.Equal(t, "6/1/2024, 12:00:00 PM", f.Local)
	assert.Equal(t, "2 hours ago", f.Relative)
	assert.Equal(t, "2024/06/01 12:00", f.Custom)
}

func TestRelative(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{500 * time.Millisecond, "just now"},
		{-time.Hour, "just now"},
		{time.Second, "1 second ago"},
		{59 * time.Second, "59 seconds ago"},
		{time.Minute, "1 minute ago"},
		{90 * time.Second, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{time.Hour, "1 hour ago"},
		{23 * time.Hour, "23 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{400 * 24 * time.Hour, "400 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Relative(ref.Add(-tt.ago), ref))
		})
	}
}

func TestParseHuman(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"2024-06-01T12:00:00Z", 1717243200},
		{"2024-06-01T12:00:00.999Z", 1717243200},
		{"2024-06-01T14:00:00+02:00", 1717243200},
		{"2024-06-01 12:00:00", 1717243200},
		{"2024-06-01", 1717200000},
		{"Sat, 01 Jun 2024 12:00:00 GMT", 1717243200},
		{"6/1/2024, 12:00:00 PM", 1717243200},
		{"Jun 1, 2024", 1717200000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToUnix(tt.in, "", time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ToUnix("yesterday-ish", "", time.UTC)
	assert.True(t, errors.Is(err, ErrUnparseable))
}

func TestParseHumanStrftime(t *testing.T) {
	got, err := ToUnix("01.06.2024 12:00", "%d.%m.%Y %H:%M", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(1717243200), got)

	_, err = ToUnix("2024", "%Y-%m", time.UTC)
	assert.Error(t, err)
}

func TestToUnixFloorsNegative(t *testing.T) {
	got, err := ToUnix("1969-12-31T23:59:59.500Z", "", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), got)
}

func TestNow(t *testing.T) {
	f := Now(Options{Location: time.UTC})
	assert.Equal(t, "just now", f.Relative)
	assert.InDelta(t, time.Now().Unix(), f.Unix, 2)
}
