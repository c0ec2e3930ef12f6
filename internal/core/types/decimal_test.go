package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "12", want: 12},
		{in: " 7 ", want: 7},
		{in: "-3", want: -3},
		{in: "12.0", want: 12},
		{in: "12.5", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "1e3", want: 1000},
		{in: "9223372036854775807", want: 9223372036854775807},
		{in: "18446744073709551621", wantErr: true},
		{in: "-1e19", wantErr: true},
		{in: "9223372036854775808.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtend(t *testing.T) {
	assert.True(t, MustMoney("-7.50").Equal(Extend(MustMoney("2.50"), -3)))
	assert.True(t, Zero().Equal(Extend(MustMoney("9.99"), 0)))
}
