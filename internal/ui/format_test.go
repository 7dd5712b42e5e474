package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
		{2 * 1024 * 1024 * 1024 * 1024, "2.0 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.bytes))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "0.0%", FormatPercent(0))
	assert.Equal(t, "42.5%", FormatPercent(42.5))
	assert.Equal(t, "100.0%", FormatPercent(100))
	assert.Equal(t, "7.3%", FormatPercent(7.26))
}

func TestFormatEndpoint(t *testing.T) {
	assert.Equal(t, "10.0.0.5:52110", FormatEndpoint("10.0.0.5", 52110))
	assert.Equal(t, "127.0.0.1:9050", FormatEndpoint("127.0.0.1", 9050))
	assert.Equal(t, "[::1]:9050", FormatEndpoint("::1", 9050))
	assert.Equal(t, "[fe80::1]:443", FormatEndpoint("fe80::1", 443))
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{-5 * time.Second, "0s"},
		{45 * time.Second, "45s"},
		{5*time.Minute + 32*time.Second, "5m 32s"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{76 * time.Hour, "3d 4h"},
		{25 * time.Hour, "1d 1h"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUptime(tt.d))
		})
	}
}
