package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/export"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/Veraticus/givedesk/internal/wizard"
)

// ErrDonationCanceled is returned when the donor quits the wizard.
var ErrDonationCanceled = errors.New("donation canceled")

// Review actions offered on the confirmation step.
const (
	ActionPay = iota
	ActionEdit
	ActionCancel
)

// Prompter asks the donor for wizard input on a terminal and prints the
// wizard's notifications.
type Prompter struct {
	reader *NonBlockingReader
	writer io.Writer
}

// NewPrompter creates a prompter reading from reader and writing to writer.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		reader: NewNonBlockingReader(reader),
		writer: writer,
	}
}

// Notify implements wizard.Notifier.
func (p *Prompter) Notify(n wizard.Notification) {
	line := FormatSuccess(n.Message)
	if n.Level == wizard.Error {
		line = FormatError(n.Message)
	}
	p.println(line)
}

func (p *Prompter) println(a ...any) {
	if _, err := fmt.Fprintln(p.writer, a...); err != nil {
		slog.Debug("failed to write prompt output", "error", err)
	}
}

func (p *Prompter) ask(ctx context.Context, label string) (string, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(label)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	return p.reader.ReadLine(ctx)
}

// choose lists options and returns the zero-based index picked.
func (p *Prompter) choose(ctx context.Context, label string, options []string) (int, error) {
	p.println(BoldStyle.Render(label))
	for i, opt := range options {
		p.println(fmt.Sprintf("  [%d] %s", i+1, opt))
	}
	for {
		answer, err := p.ask(ctx, "Choice")
		if err != nil {
			return 0, err
		}
		n, convErr := strconv.Atoi(answer)
		if convErr == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		p.println(FormatWarning(fmt.Sprintf("Enter a number between 1 and %d", len(options))))
	}
}

// PromptCause collects the first step: cause, amount, donor and method.
func (p *Prompter) PromptCause(ctx context.Context) (wizard.CauseInput, error) {
	var in wizard.CauseInput

	idx, err := p.choose(ctx, "Choose a cause", wizard.Causes)
	if err != nil {
		return in, err
	}
	in.Cause = wizard.Causes[idx]

	amounts := make([]string, 0, len(wizard.PresetAmounts)+1)
	for _, a := range wizard.PresetAmounts {
		amounts = append(amounts, export.Currency(a))
	}
	amounts = append(amounts, "Other amount")
	idx, err = p.choose(ctx, "Choose an amount", amounts)
	if err != nil {
		return in, err
	}
	if idx < len(wizard.PresetAmounts) {
		in.Preset = wizard.PresetAmounts[idx]
	} else if in.Custom, err = p.ask(ctx, "Amount"); err != nil {
		return in, err
	}

	if in.Name, err = p.ask(ctx, "Name (optional)"); err != nil {
		return in, err
	}
	if in.Email, err = p.ask(ctx, "Email (optional)"); err != nil {
		return in, err
	}

	idx, err = p.choose(ctx, "Payment method", []string{"Card", "PayPal"})
	if err != nil {
		return in, err
	}
	in.Method = model.MethodCard
	if idx == 1 {
		in.Method = model.MethodPayPal
	}
	return in, nil
}

// PromptCard collects card details.
func (p *Prompter) PromptCard(ctx context.Context) (wizard.CardInput, error) {
	var (
		in  wizard.CardInput
		err error
	)
	fields := []struct {
		dst   *string
		label string
	}{
		{&in.Number, "Card number"},
		{&in.Holder, "Name on card"},
		{&in.Expiry, "Expiry (MM/YY)"},
		{&in.CVV, "CVV"},
		{&in.Country, "Country"},
	}
	for _, f := range fields {
		if *f.dst, err = p.ask(ctx, f.label); err != nil {
			return in, err
		}
	}
	return in, nil
}

// PromptReview shows the payload and asks what to do with it.
func (p *Prompter) PromptReview(ctx context.Context, payload model.WizardPayload) (int, error) {
	p.println(RenderBox("Review your donation", ReviewSummary(payload)))
	return p.choose(ctx, "Ready to donate?", []string{"Confirm and pay", "Edit name or email", "Cancel"})
}

// ReviewSummary renders a payload for the review step with the card masked.
func ReviewSummary(payload model.WizardPayload) string {
	lines := []string{
		"Cause:   " + payload.Cause,
		"Amount:  " + export.Currency(payload.Amount),
		"Name:    " + export.Or(payload.Name, "Anonymous"),
		"Email:   " + export.Or(payload.Email, "-"),
	}
	if payload.Card != nil {
		lines = append(lines, "Card:    "+MaskCard(payload.Card.Number))
	}
	return strings.Join(lines, "\n")
}

// MaskCard hides all but the last four digits.
func MaskCard(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) <= 4 {
		return strings.Repeat("•", len(digits))
	}
	return "•••• " + digits[len(digits)-4:]
}

// RunDonation drives ctrl from its current step to Success, prompting for
// whatever each step needs. Validation failures re-prompt; the controller
// has already notified the donor of them.
func RunDonation(ctx context.Context, ctrl *wizard.Controller, p *Prompter) (model.Receipt, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.Receipt{}, err
		}

		switch ctrl.Step() {
		case wizard.SelectCause:
			in, err := p.PromptCause(ctx)
			if err != nil {
				return model.Receipt{}, err
			}
			if err := ctrl.SubmitCause(in); err != nil && !isValidation(err) {
				return model.Receipt{}, err
			}

		case wizard.PaymentDetails:
			var in wizard.CardInput
			if ctrl.Payload().Method == model.MethodCard {
				var err error
				if in, err = p.PromptCard(ctx); err != nil {
					return model.Receipt{}, err
				}
			}
			if err := ctrl.SubmitPayment(ctx, in); err != nil && !isValidation(err) {
				if !p.retry(ctx) {
					return model.Receipt{}, err
				}
			}

		case wizard.ReviewConfirm:
			action, err := p.PromptReview(ctx, ctrl.Payload())
			if err != nil {
				return model.Receipt{}, err
			}
			switch action {
			case ActionPay:
				// A failed charge stays on review; confirming again reuses the idempotency key.
				_, _ = ctrl.Confirm(ctx)
			case ActionEdit:
				if err := p.editDonor(ctx, ctrl); err != nil {
					return model.Receipt{}, err
				}
			default:
				return model.Receipt{}, ErrDonationCanceled
			}

		case wizard.AwaitingApproval:
			approval, _ := ctrl.Approval()
			p.println(FormatInfo("Approve the payment with PayPal:"))
			p.println("  " + approval.ApprovalURL)
			returnURL, err := p.ask(ctx, "Paste the URL PayPal returned you to")
			if err != nil {
				return model.Receipt{}, err
			}
			if _, ok, err := ctrl.ResumeFromCallback(returnURL); err != nil || !ok {
				p.println(FormatWarning("That URL does not carry a PayPal approval."))
			}

		case wizard.Success:
			receipt, _ := ctrl.Receipt()
			p.println(RenderBox("Thank you!", ReceiptSummary(receipt)))
			return receipt, nil
		}
	}
}

// ReceiptSummary renders a completed donation.
func ReceiptSummary(r model.Receipt) string {
	lines := []string{
		"Cause:   " + export.Or(r.Cause, "-"),
		"Amount:  " + export.Currency(r.Amount),
		"Method:  " + string(r.Method),
	}
	if r.TransactionID != "" {
		lines = append(lines, "Ref:     "+r.TransactionID)
	}
	if r.ReceiptURL != "" {
		lines = append(lines, "Receipt: "+r.ReceiptURL)
	}
	return strings.Join(lines, "\n")
}

func (p *Prompter) editDonor(ctx context.Context, ctrl *wizard.Controller) error {
	name, err := p.ask(ctx, "Name (optional)")
	if err != nil {
		return err
	}
	email, err := p.ask(ctx, "Email (optional)")
	if err != nil {
		return err
	}
	if err := ctrl.EditDonor(name, email); err != nil {
		if !isValidation(err) {
			return err
		}
		p.println(FormatError(common.UserMessage(err)))
	}
	return nil
}

func (p *Prompter) retry(ctx context.Context) bool {
	answer, err := p.ask(ctx, "Try again? [y/N]")
	return err == nil && strings.EqualFold(answer, "y")
}

func isValidation(err error) bool {
	var v *common.ValidationError
	return errors.As(err, &v)
}
