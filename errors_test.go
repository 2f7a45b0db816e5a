package brec_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brecio/brec"
)

func Test_NotEnoughData_Reports_Shortfall(t *testing.T) {
	t.Parallel()

	err := brec.NotEnoughData(7)

	var nd *brec.NotEnoughDataError

	require.True(t, errors.As(err, &nd))
	require.Equal(t, 7, nd.N)
}

func Test_DamagedSlotError_Unwraps_To_Cause(t *testing.T) {
	t.Parallel()

	err := &brec.DamagedSlotError{SlotIndex: 3, Cause: brec.ErrSlotRegressed}

	require.True(t, errors.Is(err, brec.ErrSlotRegressed))
	require.Contains(t, err.Error(), "3")
}

func Test_AccessSlotError_Message_Includes_Index(t *testing.T) {
	t.Parallel()

	err := &brec.AccessSlotError{Index: 42}

	require.Contains(t, err.Error(), "42")
}
