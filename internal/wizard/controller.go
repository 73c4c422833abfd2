// Package wizard is the donation flow: choose a cause, enter payment details,
// review, and finish with a receipt.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/givedesk/internal/api"
	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/google/uuid"
)

// Step is a position in the flow.
type Step int

// Flow steps. AwaitingApproval is where a PayPal donation waits while the
// donor approves the order with PayPal.
const (
	SelectCause Step = iota
	PaymentDetails
	ReviewConfirm
	AwaitingApproval
	Success
)

func (s Step) String() string {
	switch s {
	case SelectCause:
		return "select-cause"
	case PaymentDetails:
		return "payment-details"
	case ReviewConfirm:
		return "review-confirm"
	case AwaitingApproval:
		return "awaiting-approval"
	case Success:
		return "success"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Errors returned by transitions attempted from the wrong step.
var (
	ErrWrongStep     = errors.New("not available at this step")
	ErrBusy          = errors.New("payment already in progress")
	ErrOrderMismatch = errors.New("callback is for a different paypal order")
)

// Notification messages.
const (
	PaymentSucceeded  = "Payment processed successfully!"
	PayPalSucceeded   = "Payment completed successfully!"
	PayPalFailed      = "Failed to initiate PayPal payment."
	UnexpectedFailure = "An unexpected error occurred."
)

// Gateway is the donation backend's payment surface.
type Gateway interface {
	CreatePayPalOrder(ctx context.Context, order api.PayPalOrder) (api.PayPalApproval, error)
	ChargeCard(ctx context.Context, charge api.Charge) (model.Receipt, error)
}

// CardTokenizer exchanges card details for a single-use provider token.
type CardTokenizer interface {
	Tokenize(ctx context.Context, card model.Card) (string, error)
}

// Level is a notification's severity.
type Level int

// Notification levels.
const (
	Info Level = iota
	Error
)

// Notification is a non-blocking message for the donor.
type Notification struct {
	Message string
	Level   Level
}

// Notifier shows notifications. Notify is called synchronously and must not
// call back into the Controller.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Controller owns the flow's step and accumulated payload.
type Controller struct {
	gateway   Gateway
	tokenizer CardTokenizer
	notifier  Notifier
	now       func() time.Time
	logger    *slog.Logger
	handled   map[string]bool
	payload   model.WizardPayload
	receipt   model.Receipt
	approval  api.PayPalApproval
	idemKey   string
	step      Step
	mu        sync.Mutex
	busy      bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithNotifier sets where notifications go.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a controller at SelectCause.
func New(gateway Gateway, tokenizer CardTokenizer, opts ...Option) *Controller {
	c := &Controller{
		gateway:   gateway,
		tokenizer: tokenizer,
		notifier:  NotifierFunc(func(Notification) {}),
		now:       time.Now,
		logger:    slog.Default(),
		handled:   make(map[string]bool),
		step:      SelectCause,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Step returns the current step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Payload returns a snapshot of the accumulated payload.
func (c *Controller) Payload() model.WizardPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() model.WizardPayload {
	p := c.payload
	if p.Card != nil {
		card := *p.Card
		p.Card = &card
	}
	return p
}

// Receipt returns the confirmation once the flow has succeeded.
func (c *Controller) Receipt() (model.Receipt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receipt, c.step == Success
}

// Approval returns the pending PayPal approval.
func (c *Controller) Approval() (api.PayPalApproval, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.approval, c.step == AwaitingApproval
}

// Enter moves to step if its predecessors are satisfied and otherwise
// redirects to SelectCause. Success is terminal: once reached, only Reset
// leaves it. It returns the step actually entered.
func (c *Controller) Enter(step Step) Step {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step == Success {
		return c.step
	}
	if !c.satisfied(step) {
		c.logger.Debug("redirecting to cause selection", "requested", step)
		c.step = SelectCause
		return c.step
	}
	c.step = step
	return c.step
}

func (c *Controller) satisfied(step Step) bool {
	hasIntent := c.payload.Cause != "" && c.payload.Amount > 0 && c.payload.Method != ""
	switch step {
	case SelectCause:
		return true
	case PaymentDetails:
		return hasIntent
	case ReviewConfirm:
		return hasIntent && c.payload.Method == model.MethodCard && c.payload.Card != nil
	case AwaitingApproval:
		return hasIntent && c.approval.ApprovalURL != ""
	case Success:
		return c.receipt.Method != ""
	default:
		return false
	}
}

// SubmitCause validates the first step and moves to PaymentDetails.
func (c *Controller) SubmitCause(in CauseInput) error {
	amount, err := ValidateCause(in)
	if err != nil {
		c.notify(Error, common.UserMessage(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != SelectCause {
		return fmt.Errorf("submit cause: %w", ErrWrongStep)
	}
	c.payload = model.WizardPayload{
		Cause:  strings.TrimSpace(in.Cause),
		Amount: amount,
		Name:   strings.TrimSpace(in.Name),
		Email:  strings.TrimSpace(in.Email),
		Method: in.Method,
	}
	c.step = PaymentDetails
	return nil
}

// SubmitPayment completes PaymentDetails. Card payments move to review;
// PayPal payments open an order and wait for approval. Any failure leaves
// the step and payload untouched.
func (c *Controller) SubmitPayment(ctx context.Context, in CardInput) error {
	c.mu.Lock()
	if c.step != PaymentDetails || !c.satisfied(PaymentDetails) {
		c.mu.Unlock()
		return fmt.Errorf("submit payment: %w", ErrWrongStep)
	}
	method := c.payload.Method
	c.mu.Unlock()

	if method == model.MethodPayPal {
		return c.openPayPalOrder(ctx)
	}

	card, err := ValidateCard(in, c.now())
	if err != nil {
		c.notify(Error, common.UserMessage(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload.Card = &card
	c.idemKey = uuid.NewString()
	c.step = ReviewConfirm
	return nil
}

func (c *Controller) openPayPalOrder(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	p := c.payload
	c.mu.Unlock()

	approval, err := c.gateway.CreatePayPalOrder(ctx, api.PayPalOrder{
		Cause:  p.Cause,
		Amount: p.Amount,
		Name:   p.Name,
		Email:  p.Email,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		c.logger.Warn("paypal order creation failed", "error", err)
		c.notifyLocked(Error, PayPalFailed)
		return err
	}
	c.approval = approval
	c.step = AwaitingApproval
	return nil
}

// EditDonor updates the optional donor details on the review step.
func (c *Controller) EditDonor(name, email string) error {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != ReviewConfirm {
		return fmt.Errorf("edit donor: %w", ErrWrongStep)
	}
	c.payload.Name = strings.TrimSpace(name)
	c.payload.Email = email
	return nil
}

// Confirm charges the card. The step advances only after the backend
// acknowledges the charge; on failure the donor stays on review and may
// retry with the same idempotency key.
func (c *Controller) Confirm(ctx context.Context) (model.Receipt, error) {
	c.mu.Lock()
	if c.step != ReviewConfirm || !c.satisfied(ReviewConfirm) {
		c.mu.Unlock()
		return model.Receipt{}, fmt.Errorf("confirm: %w", ErrWrongStep)
	}
	if c.busy {
		c.mu.Unlock()
		return model.Receipt{}, ErrBusy
	}
	c.busy = true
	p := c.snapshot()
	key := c.idemKey
	c.mu.Unlock()

	receipt, err := c.charge(ctx, p, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		c.logger.Warn("card charge failed", "error", err)
		c.notifyLocked(Error, failureMessage(err))
		return model.Receipt{}, err
	}

	c.payload.Card = nil
	c.idemKey = ""
	c.receipt = receipt
	c.step = Success
	c.notifyLocked(Info, PaymentSucceeded)
	return receipt, nil
}

func (c *Controller) charge(ctx context.Context, p model.WizardPayload, key string) (model.Receipt, error) {
	token, err := c.tokenizer.Tokenize(ctx, *p.Card)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("failed to tokenize card: %w", err)
	}

	receipt, err := c.gateway.ChargeCard(ctx, api.Charge{
		Token:          token,
		Email:          p.Email,
		Cause:          p.Cause,
		Amount:         p.Amount,
		NameOnCard:     p.Card.Holder,
		Name:           p.Name,
		Country:        p.Card.Country,
		IdempotencyKey: key,
	})
	if err != nil {
		return model.Receipt{}, err
	}
	if receipt.Cause == "" {
		receipt.Cause = p.Cause
	}
	if receipt.Email == "" {
		receipt.Email = p.Email
	}
	return receipt, nil
}

// ResumeFromCallback handles the return from PayPal. When callbackURL carries
// the provider's token and PayerID it marks the flow successful, notifies
// once per token, and returns the URL with those parameters removed. It
// never charges.
//
// A fresh controller accepts any callback, which is how a donor lands back
// from PayPal in a new session. Otherwise the flow must be waiting on that
// very order: card donations and mismatched tokens are refused without
// changing the step.
func (c *Controller) ResumeFromCallback(callbackURL string) (string, bool, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return callbackURL, false, fmt.Errorf("invalid callback url: %w", err)
	}

	query := u.Query()
	token, payer := query.Get("token"), query.Get("PayerID")
	if token == "" || payer == "" {
		return callbackURL, false, nil
	}
	query.Del("token")
	query.Del("PayerID")
	u.RawQuery = query.Encode()
	cleaned := u.String()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handled[token] {
		return cleaned, true, nil
	}
	if err := c.acceptsCallback(token); err != nil {
		c.logger.Warn("ignoring paypal callback", "step", c.step, "error", err)
		return cleaned, false, err
	}
	c.handled[token] = true

	c.payload.Card = nil
	c.receipt = model.Receipt{
		Cause:         c.payload.Cause,
		Email:         c.payload.Email,
		Amount:        c.payload.Amount,
		Method:        model.MethodPayPal,
		TransactionID: token,
	}
	c.step = Success
	c.notifyLocked(Info, PayPalSucceeded)
	return cleaned, true, nil
}

func (c *Controller) acceptsCallback(token string) error {
	switch c.step {
	case SelectCause:
		if c.payload.Method == model.MethodCard {
			return fmt.Errorf("resume from callback: %w", ErrWrongStep)
		}
		return nil
	case AwaitingApproval:
		if c.approval.OrderID != "" && token != c.approval.OrderID {
			return ErrOrderMismatch
		}
		return nil
	default:
		return fmt.Errorf("resume from callback: %w", ErrWrongStep)
	}
}

// Reset starts a new donation.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = model.WizardPayload{}
	c.receipt = model.Receipt{}
	c.approval = api.PayPalApproval{}
	c.idemKey = ""
	c.step = SelectCause
}

func (c *Controller) notify(level Level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyLocked(level, msg)
}

func (c *Controller) notifyLocked(level Level, msg string) {
	if msg == "" {
		return
	}
	c.notifier.Notify(Notification{Level: level, Message: msg})
}

func failureMessage(err error) string {
	var (
		rejection *common.ServerRejection
		netErr    *common.NetworkError
		authErr   *common.AuthExpired
	)
	if errors.As(err, &rejection) || errors.As(err, &netErr) || errors.As(err, &authErr) {
		return common.UserMessage(err)
	}
	return UnexpectedFailure
}
