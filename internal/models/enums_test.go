package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStatusRejectsUnknownValues(t *testing.T) {
	_, err := ParseSessionStatus("Vanished")
	assert.Error(t, err)

	var s SessionStatus
	assert.Error(t, s.Scan("Vanished"))
	assert.Error(t, json.Unmarshal([]byte(`"Vanished"`), &s))

	require.NoError(t, s.Scan("CheckedOut"))
	assert.Equal(t, SessionCheckedOut, s)
}

func TestPaymentStatusRoundTrip(t *testing.T) {
	var s PaymentStatus
	require.NoError(t, json.Unmarshal([]byte(`"Pending"`), &s))
	assert.Equal(t, PaymentPending, s)

	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, "Pending", v)
}

func TestPaymentMethodEmptyMeansUnset(t *testing.T) {
	var m PaymentMethod
	require.NoError(t, m.Scan(nil))
	assert.Equal(t, MethodUnset, m)

	_, err := ParsePaymentMethod("Barter")
	assert.Error(t, err)
}

func TestVehicleDriverPrefersCurrentHolder(t *testing.T) {
	holder := int64(9)
	v := Vehicle{OwnerID: 1, Shared: true, CurrentHolderID: &holder}
	assert.Equal(t, holder, v.Driver())

	v.Shared = false
	assert.Equal(t, int64(1), v.Driver())

	v = Vehicle{OwnerID: 1, Shared: true}
	assert.Equal(t, int64(1), v.Driver())
}
