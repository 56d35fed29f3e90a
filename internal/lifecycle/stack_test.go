package lifecycle

import (
	"errors"
	"strings"
	"testing"
)

func TestStack_ReleasesInReverseOrder(t *testing.T) {
	var order []string
	push := func(s *Stack, name string, err error) {
		s.Push(name, func() error {
			order = append(order, name)
			return err
		})
	}

	var s Stack
	push(&s, "audio device", nil)
	push(&s, "input stream", errors.New("stream stuck"))
	push(&s, "wake detector", nil)

	err := s.Close()
	if err == nil || !strings.Contains(err.Error(), "input stream: stream stuck") {
		t.Fatalf("err = %v, want input stream failure", err)
	}

	want := "wake detector,input stream,audio device"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}

	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if len(order) != 3 {
		t.Errorf("closers ran %d times, want 3", len(order))
	}
}

func TestStack_EmptyClose(t *testing.T) {
	var s Stack
	if err := s.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}
}
