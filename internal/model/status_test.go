package model

import "testing"

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"WAITING", "CONFIRMED", "CANCELLED"} {
		if _, err := ParseStatus(valid); err != nil {
			t.Errorf("ParseStatus(%q) should succeed: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "waiting", "DONE", "PENDING"} {
		if _, err := ParseStatus(invalid); err == nil {
			t.Errorf("ParseStatus(%q) should fail", invalid)
		}
	}
}

func TestStatusActive(t *testing.T) {
	if !StatusWaiting.Active() || !StatusConfirmed.Active() {
		t.Error("WAITING and CONFIRMED must count toward quota")
	}
	if StatusCancelled.Active() {
		t.Error("CANCELLED must never count toward quota")
	}
}

func TestInitialStatus(t *testing.T) {
	if got := InitialStatus(PolicyFirstCome); got != StatusConfirmed {
		t.Errorf("FIRST_COME initial status = %s, want CONFIRMED", got)
	}
	if got := InitialStatus(PolicySelection); got != StatusWaiting {
		t.Errorf("SELECTION initial status = %s, want WAITING", got)
	}
}

func TestRequiresCapacityCheck(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// Leaving CANCELLED for the counted pool grows occupancy.
		{StatusCancelled, StatusConfirmed, true},
		{StatusCancelled, StatusWaiting, true},
		// WAITING<->CONFIRMED is occupancy-neutral.
		{StatusWaiting, StatusConfirmed, false},
		{StatusConfirmed, StatusWaiting, false},
		// Shrinking occupancy never needs a check.
		{StatusWaiting, StatusCancelled, false},
		{StatusConfirmed, StatusCancelled, false},
		{StatusCancelled, StatusCancelled, false},
	}
	for _, c := range cases {
		if got := RequiresCapacityCheck(c.from, c.to); got != c.want {
			t.Errorf("RequiresCapacityCheck(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
