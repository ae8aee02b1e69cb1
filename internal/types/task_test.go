package types

import "testing"

// --- CrawlTask Tests ---

func TestCrawlTaskChild(t *testing.T) {
	parent := CrawlTask{
		URL: "https://example.com", Depth: 1, MaxDepth: 3,
		RestrictDomain: true, DomainPrefix: "https://example.com",
	}

	child := parent.Child("https://example.com/page")
	if child.URL != "https://example.com/page" {
		t.Errorf("unexpected child url %q", child.URL)
	}
	if child.Depth != 2 || child.MaxDepth != 3 {
		t.Errorf("unexpected child depths %+v", child)
	}
	if !child.RestrictDomain || child.DomainPrefix != parent.DomainPrefix {
		t.Errorf("domain restriction not inherited: %+v", child)
	}
}

func TestCrawlTaskExhausted(t *testing.T) {
	cases := []struct {
		depth, max int
		want       bool
	}{
		{0, 0, false},
		{2, 2, false},
		{3, 2, true},
	}
	for _, tc := range cases {
		task := CrawlTask{Depth: tc.depth, MaxDepth: tc.max}
		if got := task.Exhausted(); got != tc.want {
			t.Errorf("depth %d max %d: expected %v, got %v", tc.depth, tc.max, tc.want, got)
		}
	}
}

func TestCrawlTaskRoundTrip(t *testing.T) {
	task := CrawlTask{URL: "https://example.com", Depth: 1, MaxDepth: 2, RestrictDomain: true, DomainPrefix: "https://example.com"}

	body, err := task.Encode()
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	got, err := DecodeCrawlTask(body)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got != task {
		t.Errorf("round trip mismatch: %+v vs %+v", got, task)
	}
}

func TestDecodeCrawlTaskInvalid(t *testing.T) {
	if _, err := DecodeCrawlTask([]byte("{broken")); err == nil {
		t.Fatal("expected decode error")
	}
}

// --- URL Helper Tests ---

func TestNormalizeTaskURL(t *testing.T) {
	if got := NormalizeTaskURL("//cdn.example.com/x"); got != "https://cdn.example.com/x" {
		t.Errorf("expected https prefix, got %q", got)
	}
	if got := NormalizeTaskURL("https://example.com"); got != "https://example.com" {
		t.Errorf("absolute url must pass through, got %q", got)
	}
	if got := NormalizeTaskURL("/relative"); got != "/relative" {
		t.Errorf("single-slash path must pass through, got %q", got)
	}
}

func TestIsJunkURL(t *testing.T) {
	junk := []string{"", "   ", "#top", "javascript:void(0)", "  #frag"}
	for _, raw := range junk {
		if !IsJunkURL(raw) {
			t.Errorf("expected %q to be junk", raw)
		}
	}

	fine := []string{"https://example.com", "//example.com", "/path#frag"}
	for _, raw := range fine {
		if IsJunkURL(raw) {
			t.Errorf("expected %q to be crawlable", raw)
		}
	}
}

// --- Heartbeat Tests ---

func TestHeartbeatValid(t *testing.T) {
	hb := Heartbeat{NodeID: "n1", Role: RoleCrawler, IP: "10.0.0.1"}
	if !hb.Valid() {
		t.Error("complete heartbeat should be valid")
	}

	for _, mutate := range []func(*Heartbeat){
		func(h *Heartbeat) { h.NodeID = "" },
		func(h *Heartbeat) { h.Role = "" },
		func(h *Heartbeat) { h.IP = "" },
	} {
		broken := hb
		mutate(&broken)
		if broken.Valid() {
			t.Errorf("heartbeat missing identity should be invalid: %+v", broken)
		}
	}
}
