package booking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bookingdesk/internal/pricing"
)

type Step string

const (
	PackageStep      Step = "package"
	DetailsStep      Step = "details"
	ConfirmationStep Step = "confirmation"
)

// Draft carries a booking across the package and details steps until it is submitted.
type Draft struct {
	Step      Step
	PackageID int
	Selection pricing.Selection
	Subtotal  decimal.Decimal
	Details   Details

	detailsOK bool
	Booking   *Booking
}

func NewDraft() *Draft {
	return &Draft{Step: PackageStep, Subtotal: decimal.Zero}
}

// SetPackage validates the package step, prices it and advances to DetailsStep.
func (d *Draft) SetPackage(packageID int, sel pricing.Selection) error {
	if d.Step != PackageStep {
		return fmt.Errorf("cannot set package in %s step", d.Step)
	}
	if err := ValidatePackage(sel); err != nil {
		return err
	}
	d.PackageID = packageID
	d.Selection = sel
	d.Subtotal = pricing.Subtotal(sel)
	d.Step = DetailsStep
	return nil
}

// Back returns from DetailsStep to PackageStep keeping everything entered so far.
func (d *Draft) Back() error {
	if d.Step != DetailsStep {
		return fmt.Errorf("cannot go back from %s step", d.Step)
	}
	d.Step = PackageStep
	d.detailsOK = false
	return nil
}

// SetDetails validates the details step. The draft stays in DetailsStep until submitted.
func (d *Draft) SetDetails(det Details, now time.Time, loc *time.Location) error {
	if d.Step != DetailsStep {
		return fmt.Errorf("cannot set details in %s step", d.Step)
	}
	d.Details = det.normalized()
	if err := ValidateDetails(det, now, loc); err != nil {
		d.detailsOK = false
		return err
	}
	d.detailsOK = true
	return nil
}

// Ready reports whether both steps passed validation.
func (d *Draft) Ready() bool {
	return d.Step == DetailsStep && d.detailsOK
}

// Complete records the created booking and moves to ConfirmationStep.
func (d *Draft) Complete(b *Booking) error {
	if !d.Ready() {
		return fmt.Errorf("draft is not ready to submit (step %s)", d.Step)
	}
	d.Booking = b
	d.Step = ConfirmationStep
	return nil
}

func (d *Draft) Reset() {
	*d = *NewDraft()
}
