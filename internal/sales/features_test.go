package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/internal/cart"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

var unitsByName = map[string]int64{
	"piece":  pieceID,
	"pack":   packID,
	"carton": cartonID,
}

type saleTestContext struct {
	h         *harness
	rejected  []error
	modeErr   error
	result    Result
	submitErr error
}

func (c *saleTestContext) reset() {
	*c = saleTestContext{}
}

func unitID(name string) (int64, error) {
	id, ok := unitsByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q", name)
	}
	return id, nil
}

func (c *saleTestContext) aProductWithPiecesInStock(stock int) error {
	h, err := buildHarness(int64(stock), enums.CommitModeComplete)
	if err != nil {
		return err
	}
	c.h = h
	return nil
}

func (c *saleTestContext) theCommitModeIs(mode string) error {
	return c.h.workflow.SetCommitMode(context.Background(), enums.CommitMode(mode))
}

func (c *saleTestContext) iSwitchTheCommitModeTo(mode string) error {
	c.modeErr = c.h.workflow.SetCommitMode(context.Background(), enums.CommitMode(mode))
	return nil
}

func (c *saleTestContext) theCommitModeChangeIsRejectedWith(code string) error {
	if !pkgerrors.HasCode(c.modeErr, pkgerrors.Code(code)) {
		return fmt.Errorf("expected %s, got %v", code, c.modeErr)
	}
	return nil
}

func (c *saleTestContext) theCommitModeIsStill(mode string) error {
	if got := c.h.ledger.CommitMode(); got != enums.CommitMode(mode) {
		return fmt.Errorf("expected commit mode %s, got %s", mode, got)
	}
	return nil
}

func (c *saleTestContext) theCompletionCallFails() error {
	c.h.committer.completeErr = errUpstream
	return nil
}

func (c *saleTestContext) theCreationCallFails() error {
	c.h.committer.createErr = errUpstream
	return nil
}

func (c *saleTestContext) iAddInPricing(n int, unit, mode string) error {
	id, err := unitID(unit)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if _, err := c.h.workflow.Add(context.Background(), lagerID, id, enums.PricingMode(mode)); err != nil {
			c.rejected = append(c.rejected, err)
		}
	}
	return nil
}

func (c *saleTestContext) iSetTheQuantityTo(unit, mode string, qty int) error {
	id, err := unitID(unit)
	if err != nil {
		return err
	}
	return c.h.workflow.SetQuantity(context.Background(), cart.Key{ProductID: lagerID, UnitID: id, Mode: enums.PricingMode(mode)}, qty)
}

func (c *saleTestContext) iSwitchTheLine(unit, from, to string) error {
	id, err := unitID(unit)
	if err != nil {
		return err
	}
	_, err = c.h.workflow.ChangePricingMode(context.Background(), cart.Key{ProductID: lagerID, UnitID: id, Mode: enums.PricingMode(from)}, enums.PricingMode(to))
	return err
}

func (c *saleTestContext) iSubmitAPaymentOfForCustomer(paymentType string, paid int, customer string) error {
	c.result, c.submitErr = c.h.workflow.Submit(context.Background(), Checkout{
		Customer:    Customer{Name: customer},
		PaymentType: enums.PaymentType(paymentType),
		PaidAmount:  decimal.NewFromInt(int64(paid)),
	})
	return nil
}

func (c *saleTestContext) additionsAreRejectedWith(n int, code string) error {
	if len(c.rejected) != n {
		return fmt.Errorf("expected %d rejections, got %d", n, len(c.rejected))
	}
	for _, err := range c.rejected {
		if !pkgerrors.HasCode(err, pkgerrors.Code(code)) {
			return fmt.Errorf("expected %s, got %v", code, err)
		}
	}
	return nil
}

func (c *saleTestContext) noAdditionIsRejected() error {
	if len(c.rejected) != 0 {
		return fmt.Errorf("expected no rejection, got %v", c.rejected)
	}
	return nil
}

func (c *saleTestContext) theCartHolds(qty int, unit, mode string) error {
	id, err := unitID(unit)
	if err != nil {
		return err
	}
	for _, line := range c.h.workflow.View().Lines {
		if line.UnitID == id && line.Mode == enums.PricingMode(mode) {
			if line.Quantity != qty {
				return fmt.Errorf("expected %d %s, got %d", qty, unit, line.Quantity)
			}
			return nil
		}
	}
	return fmt.Errorf("no %s %s line in cart", mode, unit)
}

func (c *saleTestContext) theCartIsEmpty() error {
	if lines := c.h.workflow.View().Lines; len(lines) != 0 {
		return fmt.Errorf("expected empty cart, got %d lines", len(lines))
	}
	return nil
}

func (c *saleTestContext) availabilityIs(unit string, qty int) error {
	id, err := unitID(unit)
	if err != nil {
		return err
	}
	res, err := c.h.workflow.Availability(lagerID)
	if err != nil {
		return err
	}
	avail, ok := res.ForUnit(id)
	if !ok {
		return fmt.Errorf("no availability for %s", unit)
	}
	if !avail.AvailableQuantity.Equal(decimal.NewFromInt(int64(qty))) {
		return fmt.Errorf("expected %d %s available, got %s", qty, unit, avail.AvailableQuantity)
	}
	return nil
}

func (c *saleTestContext) theUnitPriceIs(unit, mode string, price int) error {
	id, err := unitID(unit)
	if err != nil {
		return err
	}
	for _, line := range c.h.workflow.View().Lines {
		if line.UnitID == id && line.Mode == enums.PricingMode(mode) {
			if !line.UnitPrice.Equal(decimal.NewFromInt(int64(price))) {
				return fmt.Errorf("expected unit price %d, got %s", price, line.UnitPrice)
			}
			return nil
		}
	}
	return fmt.Errorf("no %s %s line in cart", mode, unit)
}

func (c *saleTestContext) theSubmissionFailsWith(code string) error {
	if c.submitErr == nil {
		return errors.New("expected submission to fail but it succeeded")
	}
	if !pkgerrors.HasCode(c.submitErr, pkgerrors.Code(code)) {
		return fmt.Errorf("expected %s, got %v", code, c.submitErr)
	}
	return nil
}

func (c *saleTestContext) theSaleIsCommittedWithTotal(total int) error {
	if c.submitErr != nil {
		return fmt.Errorf("expected success, got %v", c.submitErr)
	}
	if c.result.State != enums.SaleStateCommitted {
		return fmt.Errorf("expected committed, got %s", c.result.State)
	}
	if !c.result.Total.Equal(decimal.NewFromInt(int64(total))) {
		return fmt.Errorf("expected total %d, got %s", total, c.result.Total)
	}
	return nil
}

func (c *saleTestContext) theSaleWasCompletedOnTheServer() error {
	if len(c.h.committer.completed) != 1 {
		return fmt.Errorf("expected one completion call, got %d", len(c.h.committer.completed))
	}
	return nil
}

func (c *saleTestContext) theSaleWasNotCompletedOnTheServer() error {
	if len(c.h.committer.completed) != 0 {
		return fmt.Errorf("expected no completion call, got %d", len(c.h.committer.completed))
	}
	return nil
}

func (c *saleTestContext) theWarningNamesTheSaleNumber(code string) error {
	if c.result.Warning == nil {
		return errors.New("expected a warning")
	}
	if !pkgerrors.HasCode(c.result.Warning, pkgerrors.Code(code)) {
		return fmt.Errorf("expected %s, got %v", code, c.result.Warning)
	}
	if !strings.Contains(c.result.Warning.Error(), c.result.SaleNumber) {
		return fmt.Errorf("warning %q does not name sale %s", c.result.Warning.Error(), c.result.SaleNumber)
	}
	return nil
}

func (c *saleTestContext) aSnapshotRefreshWasScheduled() error {
	if c.h.refresher.calls != 1 {
		return fmt.Errorf("expected one refresh, got %d", c.h.refresher.calls)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &saleTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a product with (\d+) pieces in stock$`, tc.aProductWithPiecesInStock)
	ctx.Step(`^the commit mode is "([^"]*)"$`, tc.theCommitModeIs)
	ctx.Step(`^the completion call fails$`, tc.theCompletionCallFails)
	ctx.Step(`^the creation call fails$`, tc.theCreationCallFails)

	// When steps
	ctx.Step(`^I add (\d+) "([^"]*)" in "([^"]*)" pricing$`, tc.iAddInPricing)
	ctx.Step(`^I set the "([^"]*)" "([^"]*)" quantity to (\d+)$`, tc.iSetTheQuantityTo)
	ctx.Step(`^I switch the "([^"]*)" line from "([^"]*)" to "([^"]*)"$`, tc.iSwitchTheLine)
	ctx.Step(`^I switch the commit mode to "([^"]*)"$`, tc.iSwitchTheCommitModeTo)
	ctx.Step(`^I submit a "([^"]*)" payment of (\d+) for customer "([^"]*)"$`, tc.iSubmitAPaymentOfForCustomer)

	// Then steps
	ctx.Step(`^(\d+) additions are rejected with "([^"]*)"$`, tc.additionsAreRejectedWith)
	ctx.Step(`^no addition is rejected$`, tc.noAdditionIsRejected)
	ctx.Step(`^the commit mode change is rejected with "([^"]*)"$`, tc.theCommitModeChangeIsRejectedWith)
	ctx.Step(`^the commit mode is still "([^"]*)"$`, tc.theCommitModeIsStill)
	ctx.Step(`^the cart holds (\d+) "([^"]*)" in "([^"]*)" pricing$`, tc.theCartHolds)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^"([^"]*)" availability is (\d+)$`, tc.availabilityIs)
	ctx.Step(`^the "([^"]*)" "([^"]*)" unit price is (\d+)$`, tc.theUnitPriceIs)
	ctx.Step(`^the submission fails with "([^"]*)"$`, tc.theSubmissionFailsWith)
	ctx.Step(`^the sale is committed with total (\d+)$`, tc.theSaleIsCommittedWithTotal)
	ctx.Step(`^the sale was completed on the server$`, tc.theSaleWasCompletedOnTheServer)
	ctx.Step(`^the sale was not completed on the server$`, tc.theSaleWasNotCompletedOnTheServer)
	ctx.Step(`^the warning "([^"]*)" names the sale number$`, tc.theWarningNamesTheSaleNumber)
	ctx.Step(`^a snapshot refresh was scheduled$`, tc.aSnapshotRefreshWasScheduled)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
