package domain

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		want    int64
		wantErr bool
	}{
		{name: "whole rupees", amount: "299", want: 29900},
		{name: "paise", amount: "49.99", want: 4999},
		{name: "single decimal", amount: "0.5", want: 50},
		{name: "sub paise", amount: "1.005", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinorUnits(decimal.RequireFromString(tt.amount))
			if tt.wantErr {
				require.Error(t, err)
				require.Equal(t, KindInvalidAmount, KindOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.True(t, FromMinorUnits(got).Equal(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestValidateAmount(t *testing.T) {
	max := decimal.NewFromInt(100000)
	for _, bad := range []string{"0", "-1", "-0.01", "100000.01", "250000"} {
		err := ValidateAmount(decimal.RequireFromString(bad), max)
		require.Error(t, err, bad)
		require.Equal(t, KindInvalidAmount, KindOf(err), bad)
	}
	for _, good := range []string{"0.01", "1", "299", "100000"} {
		require.NoError(t, ValidateAmount(decimal.RequireFromString(good), max), good)
	}
}

func TestKindHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, KindInvalidAmount.HTTPStatus())
	require.Equal(t, http.StatusBadRequest, KindVerificationFailed.HTTPStatus())
	require.Equal(t, http.StatusUnauthorized, KindUnauthorized.HTTPStatus())
	require.Equal(t, http.StatusInternalServerError, KindConfigurationError.HTTPStatus())
	require.Equal(t, http.StatusInternalServerError, KindOrderCreationFailed.HTTPStatus())
}

func TestPurchaseResultSuccess(t *testing.T) {
	require.True(t, PurchaseResult{Outcome: OutcomeVerified}.Success())
	require.False(t, PurchaseResult{Outcome: OutcomeSimulated}.Success())
	require.True(t, PurchaseResult{Outcome: OutcomeSimulated}.Simulated())
	require.False(t, PurchaseResult{Outcome: OutcomeCancelled}.Success())

	res := PurchaseFailed(Wrap(KindOrderCreationFailed, "Failed to create order", http.ErrHandlerTimeout))
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, KindOrderCreationFailed, res.Kind)
	require.Equal(t, "Failed to create order", res.Error)
}
