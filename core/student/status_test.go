package student

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestFeesStatus_Badge(t *testing.T) {
	tests := []struct {
		status  FeesStatus
		want    Badge
		wantErr bool
	}{
		{status: FeesPaid, want: BadgePositive},
		{status: FeesPartial, want: BadgeNeutral},
		{status: FeesUnpaid, want: BadgeNegative},
		{status: "PAID", wantErr: true},
		{status: "overdue", wantErr: true},
		{status: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got, err := tt.status.Badge()
			if tt.wantErr {
				assert.Equal(t, ErrUnknownFeesStatus, errors.Cause(err))
				assert.Empty(t, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// deterministic
			again, _ := tt.status.Badge()
			assert.Equal(t, got, again)
		})
	}
}

func TestNewRows(t *testing.T) {
	rows, err := NewRows([]Student{{ID: "1", FeesStatus: FeesPaid}, {ID: "2", FeesStatus: FeesUnpaid}})
	assert.NoError(t, err)
	assert.Equal(t, []Badge{BadgePositive, BadgeNegative}, []Badge{rows[0].Badge, rows[1].Badge})

	_, err = NewRows([]Student{{ID: "1", FeesStatus: FeesPaid}, {ID: "2", FeesStatus: "late"}})
	assert.Equal(t, ErrUnknownFeesStatus, errors.Cause(err))
}
