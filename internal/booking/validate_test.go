package booking

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"bookingdesk/internal/pricing"
)

func boolPtr(v bool) *bool { return &v }

var cairo = time.FixedZone("EET", 2*3600)

// 2025-03-10 23:30 in Cairo, still "today" there.
var testNow = time.Date(2025, 3, 10, 21, 30, 0, 0, time.UTC)

func validDetails() Details {
	return Details{
		FullName:     "Mona Adel",
		Phone:        "+20 100 000 0000",
		Email:        "mona@example.com",
		EventDate:    "2025-03-11",
		ReadyTime:    "17:30",
		ServingTime:  "19:00",
		Address:      "12 Nile St",
		Location:     "Villa 4",
		AreaID:       3,
		EventTypeID:  2,
		AllowFilming: boolPtr(false),
	}
}

func rangeField(t *testing.T, err error) string {
	t.Helper()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
	require.Len(t, verrs, 1)
	var re RangeError
	require.True(t, errors.As(verrs[0], &re))
	return re.Field
}

func TestValidatePackage_GuestBounds(t *testing.T) {
	for _, g := range []int{10, 11, 19999, 20000} {
		require.NoError(t, ValidatePackage(pricing.Selection{Kind: pricing.KindFullExperience, Guests: g}), "guests=%d", g)
	}
	for _, g := range []int{0, 9, 20001, 200000} {
		err := ValidatePackage(pricing.Selection{Kind: pricing.KindFullExperience, Guests: g})
		require.Equal(t, "guests", rangeField(t, err), "guests=%d", g)
	}
}

func TestValidatePackage_PizzaBounds(t *testing.T) {
	ok := []pricing.Selection{
		{Kind: pricing.KindLiveSetup, ClassicPizzas: 20},
		{Kind: pricing.KindLiveSetup, ClassicPizzas: 10, SignaturePizzas: 10},
		{Kind: pricing.KindLiveSetup, SignaturePizzas: 20000},
		{Kind: pricing.KindLiveSetup, ClassicPizzas: 50, SignaturePizzas: 70},
	}
	for _, sel := range ok {
		require.NoError(t, ValidatePackage(sel), "%+v", sel)
	}

	bad := []pricing.Selection{
		{Kind: pricing.KindLiveSetup},
		{Kind: pricing.KindLiveSetup, ClassicPizzas: 19},
		{Kind: pricing.KindLiveSetup, ClassicPizzas: 10, SignaturePizzas: 9},
		{Kind: pricing.KindLiveSetup, ClassicPizzas: 20000, SignaturePizzas: 1},
	}
	for _, sel := range bad {
		require.Equal(t, "pizzas", rangeField(t, ValidatePackage(sel)), "%+v", sel)
	}
}

func TestValidatePackage_ZeroPizzasHitsRangeRuleFirst(t *testing.T) {
	var verrs ValidationErrors
	require.True(t, errors.As(ValidatePackage(pricing.Selection{Kind: pricing.KindLiveSetup}), &verrs))
	require.Equal(t, "Total number of pizzas must be between 20 and 20,000", verrs.Fields()["pizzas"])
}

func TestValidatePackage_UnknownKind(t *testing.T) {
	var verrs ValidationErrors
	require.True(t, errors.As(ValidatePackage(pricing.Selection{Guests: 50}), &verrs))
	require.Equal(t, []string{"package"}, verrs.FieldNames())
}

func TestValidateDetails_Valid(t *testing.T) {
	require.NoError(t, ValidateDetails(validDetails(), testNow, cairo))
}

func TestValidateDetails_EventDateMustBeAfterToday(t *testing.T) {
	d := validDetails()
	d.EventDate = "2025-03-10"
	var verrs ValidationErrors
	require.True(t, errors.As(ValidateDetails(d, testNow, cairo), &verrs))
	require.Equal(t, []string{"eventDate"}, verrs.FieldNames())

	// Same instant is already the 11th in a zone further east.
	require.Error(t, ValidateDetails(validDetails(), testNow, time.FixedZone("+04", 4*3600)))
}

func TestValidateDetails_ReportsEveryField(t *testing.T) {
	var verrs ValidationErrors
	require.True(t, errors.As(ValidateDetails(Details{Email: "not-an-email", ReadyTime: "7pm"}, testNow, cairo), &verrs))
	require.Equal(t, []string{
		"address", "allowFilming", "areaId", "email", "eventDate", "eventTypeId",
		"fullName", "location", "phone", "readyTime", "servingTime",
	}, verrs.FieldNames())
	require.Equal(t, "invalid email address", verrs.Fields()["email"])
	require.Equal(t, "readyTime must be HH:MM", verrs.Fields()["readyTime"])
}

func TestValidateDetails_OptionalFields(t *testing.T) {
	d := validDetails()
	d.Comment = ""
	d.PaymentProofURL = ""
	require.NoError(t, ValidateDetails(d, testNow, cairo))

	d.AllowFilming = boolPtr(true)
	require.NoError(t, ValidateDetails(d, testNow, cairo))
}

func TestValidateDetails_WhitespaceIsMissing(t *testing.T) {
	d := validDetails()
	d.FullName = "   "
	var verrs ValidationErrors
	require.True(t, errors.As(ValidateDetails(d, testNow, cairo), &verrs))
	require.Equal(t, []string{"fullName"}, verrs.FieldNames())
}
