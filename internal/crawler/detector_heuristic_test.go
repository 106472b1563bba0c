package crawler

import (
	"context"
	"strings"
	"testing"
)

func TestHeuristicDetector(t *testing.T) {
	d := NewHeuristicDetector(50, []string{"__NEXT_DATA__", "data-reactroot"})
	ctx := context.Background()

	filler := strings.Repeat("<p>入札公告の一覧です。</p>", 10)

	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "small shell triggers", body: "<html></html>", want: true},
		{name: "spa marker triggers", body: filler + `<div data-reactroot></div>`, want: true},
		{name: "marker match is case-insensitive", body: filler + "__next_data__", want: true},
		{name: "static page passes", body: filler, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.NeedsJS(ctx, Page{Body: []byte(tt.body)})
			if got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestDomainLimiterHonorsContext(t *testing.T) {
	l := NewDomainLimiter(0.001)
	ctx, cancel := context.WithCancel(context.Background())

	if err := l.Wait(ctx, "https://pref.example.jp/a"); err != nil {
		// First token is available immediately; burst one.
		t.Fatalf("first wait should not block: %v", err)
	}

	cancel()
	if err := l.Wait(ctx, "https://pref.example.jp/b"); err == nil {
		t.Fatal("second wait must fail once the context is canceled")
	}
}
