package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePSTime(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"0:00", 0},
		{"0:07", 7 * time.Second},
		{"12:34", 12*time.Minute + 34*time.Second},
		{"59:59", 59*time.Minute + 59*time.Second},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{"00:00:01", time.Second},
		{"2-03:04:05", 51*time.Hour + 4*time.Minute + 5*time.Second},
		{"0:00.25", 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parsePSTime(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParsePSTimeInvalid(t *testing.T) {
	inputs := []string{"", "5", "1:2:3:4", "abc:12", "1:xx", "x-1:02"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := parsePSTime(input)
			assert.Error(t, err)
		})
	}
}

func TestParsePSResources(t *testing.T) {
	sample, err := parsePSResources("   00:07:02 00:01:13 23504\n")
	require.NoError(t, err)

	assert.Equal(t, 7*time.Minute+2*time.Second, sample.CPUUser)
	assert.Equal(t, time.Minute+13*time.Second, sample.CPUSystem)
	assert.Equal(t, uint64(23504*1024), sample.MemoryResident, "ps reports rss in kilobytes")
	assert.Zero(t, sample.FDsUsed, "ps carries no descriptor data")
	assert.Zero(t, sample.FDsLimit)
}

func TestParsePSResourcesInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too few columns", "00:07:02 00:01:13"},
		{"bad rss", "0:01 0:02 lots"},
		{"bad utime", "nope 0:02 100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePSResources(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestPSResolverQueryResources(t *testing.T) {
	var gotArgs []string
	r := &psResolver{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("   0:03 0:01 1365\n"), nil
	}}

	sample, err := r.QueryResources(context.Background(), 1234)
	require.NoError(t, err)
	assert.Equal(t, []string{"ps", "-p", "1234", "-o", "utime=,stime=,rss="}, gotArgs)
	assert.Equal(t, 3*time.Second, sample.CPUUser)
	assert.Equal(t, time.Second, sample.CPUSystem)
	assert.False(t, sample.Timestamp.IsZero())
}

func TestPSResolverQueryResourcesCommandFailure(t *testing.T) {
	wantErr := errors.New("exit status 1")
	r := &psResolver{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, wantErr
	}}

	_, err := r.QueryResources(context.Background(), 1234)
	assert.ErrorIs(t, err, wantErr)
}

func TestPSResolverShape(t *testing.T) {
	r := NewPSResolver()
	assert.Equal(t, ResolverPS, r.Name())
	assert.Equal(t, CapResources, r.Capabilities())
	assert.False(t, r.Capabilities().Has(CapConnections))

	_, err := r.QueryConnections(context.Background(), 1)
	assert.ErrorIs(t, err, ErrResolverUnavailable)
}
