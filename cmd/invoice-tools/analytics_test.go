package main

import (
	"testing"
	"time"
)

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		wantNil  bool
		wantErr  bool
		wantLast time.Time
	}{
		{name: "no dates", wantNil: true},
		{name: "only start", start: "2024-01-01", wantErr: true},
		{name: "bad end", start: "2024-01-01", end: "31/03/2024", wantErr: true},
		{name: "end covers the whole day", start: "2024-01-01", end: "2024-03-31", wantLast: time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := parseDateRange(tt.start, tt.end)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if r != nil {
					t.Fatalf("expected nil range, got %+v", r)
				}
				return
			}
			if !r.EndDate.Equal(tt.wantLast) {
				t.Fatalf("want end %s got %s", tt.wantLast, r.EndDate)
			}
		})
	}
}
