package timeutil

import "testing"

func TestTimeToMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"00:00:00", 0},
		{"09:30", 570},
		{"09:30:45", 570},
		{"23:59", 1439},
		{"", 0},
		{"garbage", 0},
		{"ab:cd", 0},
	}
	for _, tc := range cases {
		if got := TimeToMinutes(tc.in); got != tc.want {
			t.Errorf("TimeToMinutes(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMinutesToTime(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "00:00:00"},
		{570, "09:30:00"},
		{1439, "23:59:00"},
	}
	for _, tc := range cases {
		if got := MinutesToTime(tc.in); got != tc.want {
			t.Errorf("MinutesToTime(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("09:00", "10:30"); got != 90 {
		t.Errorf("Duration = %d, want 90", got)
	}
	if got := Duration("10:00", "10:00"); got != 0 {
		t.Errorf("Duration equal times = %d, want 0", got)
	}
	if got := Duration("11:00", "10:00"); got != -60 {
		t.Errorf("Duration reversed = %d, want -60", got)
	}
}

func TestAddMinutesCapped(t *testing.T) {
	cases := []struct {
		start   string
		minutes int
		cap     string
		want    string
	}{
		{"09:00", 60, "17:00", "10:00:00"},
		{"16:30", 60, "17:00", "17:00:00"},
		{"17:00", 30, "17:00", "17:00:00"},
	}
	for _, tc := range cases {
		if got := AddMinutesCapped(tc.start, tc.minutes, tc.cap); got != tc.want {
			t.Errorf("AddMinutesCapped(%q, %d, %q) = %q, want %q", tc.start, tc.minutes, tc.cap, got, tc.want)
		}
	}
}

func TestFormat12Hour(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"00:00", "12:00 AM"},
		{"00:30:00", "12:30 AM"},
		{"09:05", "9:05 AM"},
		{"12:00", "12:00 PM"},
		{"13:45", "1:45 PM"},
		{"23:59", "11:59 PM"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Format12Hour(tc.in); got != tc.want {
			t.Errorf("Format12Hour(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormat24Hour(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"12:00 AM", "00:00"},
		{"12:30 PM", "12:30"},
		{"9:05 AM", "09:05"},
		{"1:45 PM", "13:45"},
		{"11:59 PM", "23:59"},
	}
	for _, tc := range cases {
		if got := Format24Hour(tc.in); got != tc.want {
			t.Errorf("Format24Hour(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// Every grid entry must survive a 12-hour render and come back unchanged.
func TestFormatRoundTripOverGrid(t *testing.T) {
	for t24 := range TimeGrid(1) {
		if got := Format24Hour(Format12Hour(t24)); got != t24 {
			t.Fatalf("round trip %q -> %q -> %q", t24, Format12Hour(t24), got)
		}
	}
}

func TestTimeGrid(t *testing.T) {
	var got []string
	for v := range TimeGrid(480) {
		got = append(got, v)
	}
	want := []string{"00:00", "08:00", "16:00"}
	if len(got) != len(want) {
		t.Fatalf("TimeGrid(480) yielded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TimeGrid(480)[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// The sequence must be restartable.
	grid := TimeGrid(30)
	first := 0
	for range grid {
		first++
	}
	second := 0
	for range grid {
		second++
	}
	if first != 48 || second != 48 {
		t.Errorf("TimeGrid(30) counts = %d, %d, want 48 both times", first, second)
	}

	for range TimeGrid(0) {
		t.Fatal("TimeGrid(0) must yield nothing")
	}
}
