package booking

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bookingdesk/internal/pricing"
)

func TestDraft_StepFlow(t *testing.T) {
	d := NewDraft()
	require.Equal(t, PackageStep, d.Step)
	require.Error(t, d.SetDetails(validDetails(), testNow, cairo))

	sel := pricing.Selection{Kind: pricing.KindLiveSetup, ClassicPizzas: 50, SignaturePizzas: 70}
	require.NoError(t, d.SetPackage(2, sel))
	require.Equal(t, DetailsStep, d.Step)
	require.Equal(t, "39500", d.Subtotal.String())

	require.NoError(t, d.Back())
	require.Equal(t, PackageStep, d.Step)
	require.Equal(t, sel, d.Selection, "back keeps the package data")

	require.NoError(t, d.SetPackage(2, sel))
	require.False(t, d.Ready())
	require.Error(t, d.Complete(&Booking{ID: "x"}))

	require.NoError(t, d.SetDetails(validDetails(), testNow, cairo))
	require.True(t, d.Ready())
	require.NoError(t, d.Complete(&Booking{ID: "x"}))
	require.Equal(t, ConfirmationStep, d.Step)
	require.Error(t, d.Back())

	d.Reset()
	require.Equal(t, PackageStep, d.Step)
	require.Nil(t, d.Booking)
}

func TestDraft_InvalidPackageStaysOnPackageStep(t *testing.T) {
	d := NewDraft()
	require.Error(t, d.SetPackage(1, pricing.Selection{Kind: pricing.KindFullExperience, Guests: 9}))
	require.Equal(t, PackageStep, d.Step)
}

func TestDraft_InvalidDetailsNotReady(t *testing.T) {
	d := NewDraft()
	require.NoError(t, d.SetPackage(1, pricing.Selection{Kind: pricing.KindFullExperience, Guests: 40}))
	det := validDetails()
	det.Phone = ""
	require.Error(t, d.SetDetails(det, testNow, cairo))
	require.False(t, d.Ready())
}
