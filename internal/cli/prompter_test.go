package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/givedesk/internal/api"
	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/Veraticus/givedesk/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	chargeErrs []error
	paypalErr  error
	charges    []api.Charge
}

func (s *stubGateway) CreatePayPalOrder(context.Context, api.PayPalOrder) (api.PayPalApproval, error) {
	if s.paypalErr != nil {
		return api.PayPalApproval{}, s.paypalErr
	}
	return api.PayPalApproval{ApprovalURL: "https://paypal.test/approve?token=EC-1", OrderID: "EC-1"}, nil
}

func (s *stubGateway) ChargeCard(_ context.Context, charge api.Charge) (model.Receipt, error) {
	s.charges = append(s.charges, charge)
	if len(s.chargeErrs) > 0 {
		err := s.chargeErrs[0]
		s.chargeErrs = s.chargeErrs[1:]
		return model.Receipt{}, err
	}
	return model.Receipt{Method: model.MethodCard, Amount: charge.Amount, TransactionID: "ch_1"}, nil
}

type stubTokenizer struct{}

func (stubTokenizer) Tokenize(context.Context, model.Card) (string, error) { return "tok_1", nil }

func runScript(t *testing.T, gw *stubGateway, script ...string) (model.Receipt, string, error) {
	t.Helper()
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(strings.Join(script, "\n")+"\n"), &out)
	ctrl := wizard.New(gw, stubTokenizer{},
		wizard.WithClock(func() time.Time { return time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC) }),
		wizard.WithNotifier(p))

	receipt, err := RunDonation(context.Background(), ctrl, p)
	return receipt, out.String(), err
}

func TestRunDonationCard(t *testing.T) {
	gw := &stubGateway{}
	receipt, out, err := runScript(t, gw,
		"2",   // Medical Aid
		"3",   // $25
		"Ann", // name
		"",    // email
		"1",   // card
		"4242 4242 4242 4242", "Ann Lee", "12/30", "123", "JO",
		"1", // confirm
	)
	require.NoError(t, err)

	assert.Equal(t, model.MethodCard, receipt.Method)
	assert.InDelta(t, 25.0, receipt.Amount, 0.001)
	require.Len(t, gw.charges, 1)
	assert.Equal(t, "Medical Aid", gw.charges[0].Cause)
	assert.Equal(t, "tok_1", gw.charges[0].Token)
	assert.Contains(t, out, wizard.PaymentSucceeded)
	assert.Contains(t, out, "•••• 4242")
	assert.NotContains(t, out, "4242 4242 4242 4242\n")
}

func TestRunDonationRepromptsInvalidInput(t *testing.T) {
	gw := &stubGateway{}
	_, out, err := runScript(t, gw,
		"9", "1", // out of range, then Food & Water
		"5", "abc", // other amount, invalid
		"", "", "1",
		// second attempt at the first step
		"1", "5", "$1,250", "", "", "1",
		"4242424242424242", "Ann", "01/20", "123", "", // expired card
		"4242424242424242", "Ann", "12/30", "123", "",
		"1",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Enter a number between 1 and 3")
	assert.Contains(t, out, "Card")
	require.Len(t, gw.charges, 1)
	assert.InDelta(t, 1250.0, gw.charges[0].Amount, 0.001)
}

func TestRunDonationRetriesDeclinedCharge(t *testing.T) {
	gw := &stubGateway{chargeErrs: []error{&common.ServerRejection{StatusCode: 402, Message: "Your card was declined."}}}
	_, out, err := runScript(t, gw,
		"1", "1", "", "", "1",
		"4242424242424242", "Ann", "12/30", "123", "",
		"1", // declined
		"1", // retry
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Your card was declined.")
	require.Len(t, gw.charges, 2)
	assert.Equal(t, gw.charges[0].IdempotencyKey, gw.charges[1].IdempotencyKey)
}

func TestRunDonationCancel(t *testing.T) {
	_, _, err := runScript(t, &stubGateway{},
		"1", "1", "", "", "1",
		"4242424242424242", "Ann", "12/30", "123", "",
		"3",
	)
	assert.ErrorIs(t, err, ErrDonationCanceled)
}

func TestRunDonationPayPal(t *testing.T) {
	receipt, out, err := runScript(t, &stubGateway{},
		"3", "4", "", "ann@example.com", "2",
		"https://give.test/donate", // no approval parameters
		"https://give.test/donate?token=EC-1&PayerID=P1",
	)
	require.NoError(t, err)

	assert.Equal(t, model.MethodPayPal, receipt.Method)
	assert.Equal(t, "EC-1", receipt.TransactionID)
	assert.Contains(t, out, "https://paypal.test/approve?token=EC-1")
	assert.Contains(t, out, "does not carry a PayPal approval")
	assert.Equal(t, 1, strings.Count(out, wizard.PayPalSucceeded))
}

func TestRunDonationPayPalFailureDeclinedRetry(t *testing.T) {
	_, out, err := runScript(t, &stubGateway{paypalErr: errors.New("boom")},
		"1", "1", "", "", "2",
		"n",
	)
	require.Error(t, err)
	assert.Contains(t, out, wizard.PayPalFailed)
}

func TestRunDonationEOF(t *testing.T) {
	_, _, err := runScript(t, &stubGateway{}, "1")
	assert.ErrorIs(t, err, io.EOF)
}

func TestMaskCard(t *testing.T) {
	assert.Equal(t, "•••• 4242", MaskCard("4242 4242 4242 4242"))
	assert.Equal(t, "•••", MaskCard("123"))
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"Donor", "Amount"}, [][]string{{"Ann", "$25.00"}, {"Bartholomew", "$5.00"}})
	lines := strings.Split(out, "\n")

	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Donor")
	assert.Contains(t, lines[3], "Bartholomew")
	assert.Equal(t, strings.Index(lines[0], "Amount"), strings.Index(lines[2], "$25.00"))
}
