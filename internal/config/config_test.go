package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "")

	c, err := LoadServer()
	require.NoError(t, err)
	require.Equal(t, 8080, c.Port)
	require.Equal(t, "INR", c.DefaultCurrency)
	require.Equal(t, float64(100000), c.MaxAmount)
	require.Equal(t, 30*time.Minute, c.OrderTTL)
	require.True(t, c.CheckSettlement)
	require.Equal(t, "https://api.razorpay.com", c.Provider.BaseURL)
	require.False(t, c.Provider.Configured())
}

func TestLoadServerRejectsNonPositiveMax(t *testing.T) {
	t.Setenv("MAX_AMOUNT", "0")
	_, err := LoadServer()
	require.Error(t, err)
}

func TestLoadClient(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend:9000")
	t.Setenv("ALLOW_SIMULATED", "true")
	t.Setenv("SCRIPT_LOAD_TIMEOUT", "3s")

	c, err := LoadClient()
	require.NoError(t, err)
	require.Equal(t, "http://backend:9000", c.BackendURL)
	require.True(t, c.AllowSimulated)
	require.Equal(t, 3*time.Second, c.ScriptLoadTimeout)
	require.Equal(t, "https://checkout.razorpay.com/v1/checkout.js", c.CheckoutScriptURL)
}
