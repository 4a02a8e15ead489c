package cache

import (
	"testing"
	"time"
)

func TestNewEntry(t *testing.T) {
	body := []byte(`{"total_count": 1, "items": []}`)
	entry := NewEntry(body, 200, 10*time.Minute)

	if string(entry.Data) != string(body) {
		t.Errorf("Data = %q, want %q", entry.Data, body)
	}
	if entry.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", entry.StatusCode)
	}
	if entry.IsExpired() {
		t.Error("fresh entry should not be expired")
	}
}

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name     string
		expires  time.Time
		expected bool
	}{
		{
			name:     "future expiry",
			expires:  time.Now().Add(time.Hour),
			expected: false,
		},
		{
			name:     "past expiry",
			expires:  time.Now().Add(-time.Hour),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{Expires: tt.expires}
			if got := entry.IsExpired(); got != tt.expected {
				t.Errorf("IsExpired() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	entry := &Entry{Expires: time.Now().Add(time.Minute)}
	ttl := entry.TTL()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL() = %s, want between 0 and 1m", ttl)
	}

	expired := &Entry{Expires: time.Now().Add(-time.Minute)}
	if got := expired.TTL(); got != 0 {
		t.Errorf("TTL() for expired entry = %s, want 0", got)
	}
}
