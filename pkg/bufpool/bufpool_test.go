package bufpool

import (
	"strings"
	"testing"
)

func TestGetString_Empty(t *testing.T) {
	sb := GetString()
	sb.WriteString("leftover")
	PutString(sb)

	again := GetString()
	defer PutString(again)
	if again.Len() != 0 {
		t.Errorf("expected empty builder, got %q", again.String())
	}
}

func TestGetStringSized(t *testing.T) {
	sb := GetStringSized(512)
	defer PutString(sb)
	if sb.Cap() < 512 {
		t.Errorf("expected capacity >= 512, got %d", sb.Cap())
	}
}

func TestPutString_DropsOversized(t *testing.T) {
	sb := GetString()
	sb.WriteString(strings.Repeat("x", maxPooled+1))
	PutString(sb) // must not panic
	PutString(nil)
}

func TestBuffer_Reset(t *testing.T) {
	buf := Get()
	buf.WriteString("data")
	Put(buf)

	again := Get()
	defer Put(again)
	if again.Len() != 0 {
		t.Errorf("expected empty buffer, got %d bytes", again.Len())
	}
	Put(nil)
}
