package wizard

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/model"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// PresetAmounts are the one-tap donation amounts.
var PresetAmounts = []float64{5, 10, 25, 50}

// Causes are the causes a donor can pick.
var Causes = []string{"Food & Water", "Medical Aid", "Shelter & Education"}

// FormIncomplete is shown when a step is submitted with missing fields.
const FormIncomplete = "Please fill out the form"

var (
	expiryPattern = regexp.MustCompile(`^(\d{2})/(\d{2})$`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
	cvvPattern    = regexp.MustCompile(`^\d{3,4}$`)
)

// CauseInput is what the donor enters on the first step. Custom wins over
// Preset when it is non-blank.
type CauseInput struct {
	Cause  string              `json:"cause"`
	Custom string              `json:"amount"`
	Name   string              `json:"name"`
	Email  string              `json:"email"`
	Method model.PaymentMethod `json:"method"`
	Preset float64             `json:"-"`
}

// CardInput is what the donor enters on the card form.
type CardInput struct {
	Number  string `json:"number"`
	Holder  string `json:"holder"`
	Expiry  string `json:"expiry"`
	CVV     string `json:"cvv"`
	Country string `json:"country"`
}

// ParseAmount resolves the donation amount from a preset or a custom entry
// such as "$1,250".
func ParseAmount(preset float64, custom string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(custom)
	if cleaned == "" {
		for _, p := range PresetAmounts {
			if preset == p {
				return preset, nil
			}
		}
		return 0, common.NewValidationError("amount", "Please select or enter an amount")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, common.NewValidationError("amount", "Please enter a valid amount")
	}
	return v, nil
}

// ValidateCause checks the first step and returns the resolved amount.
func ValidateCause(in CauseInput) (float64, error) {
	in.Cause = strings.TrimSpace(in.Cause)
	in.Email = strings.TrimSpace(in.Email)

	err := validation.ValidateStruct(&in,
		validation.Field(&in.Cause, validation.Required.Error("Please choose a cause")),
		validation.Field(&in.Method,
			validation.Required.Error("Please choose a payment method"),
			validation.In(model.MethodCard, model.MethodPayPal).Error("Unsupported payment method")),
		validation.Field(&in.Email, is.EmailFormat.Error("Please enter a valid email")),
	)
	if err != nil {
		return 0, firstFieldError(err, "cause", "method", "email")
	}
	return ParseAmount(in.Preset, in.Custom)
}

// ValidateEmail accepts a blank email or a syntactically valid one.
func ValidateEmail(email string) error {
	err := validation.Validate(strings.TrimSpace(email), is.EmailFormat.Error("Please enter a valid email"))
	if err != nil {
		return common.NewValidationError("email", messageOf(err))
	}
	return nil
}

// ValidateCard checks the card form against the month containing now.
func ValidateCard(in CardInput, now time.Time) (model.Card, error) {
	card := model.Card{
		Number:  strings.ReplaceAll(in.Number, " ", ""),
		Holder:  strings.TrimSpace(in.Holder),
		Expiry:  strings.TrimSpace(in.Expiry),
		CVV:     strings.TrimSpace(in.CVV),
		Country: strings.TrimSpace(in.Country),
	}
	check := CardInput{Number: card.Number, Holder: card.Holder, Expiry: card.Expiry, CVV: card.CVV}

	err := validation.ValidateStruct(&check,
		validation.Field(&check.Number,
			validation.Required.Error(FormIncomplete),
			validation.Match(digitsPattern).Error("Card number must contain only digits"),
			validation.Length(16, 16).Error("Card number must be 16 digits")),
		validation.Field(&check.Holder, validation.Required.Error(FormIncomplete)),
		validation.Field(&check.Expiry,
			validation.Required.Error(FormIncomplete),
			validation.By(futureExpiry(now))),
		validation.Field(&check.CVV,
			validation.Required.Error(FormIncomplete),
			validation.Match(cvvPattern).Error("CVV must be 3 or 4 digits")),
	)
	if err != nil {
		return model.Card{}, firstFieldError(err, "number", "holder", "expiry", "cvv")
	}
	return card, nil
}

// ExpiryValid reports whether MM/YY names a real month strictly after the
// month containing now.
func ExpiryValid(expiry string, now time.Time) bool {
	return futureExpiry(now)(expiry) == nil
}

func futureExpiry(now time.Time) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		m := expiryPattern.FindStringSubmatch(s)
		if m == nil {
			return validation.NewError("expiry_format", "Expiry must be MM/YY")
		}
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return validation.NewError("expiry_month", "Expiry month must be 01-12")
		}

		expires := time.Date(2000+year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
		if !expires.After(now) {
			return validation.NewError("expiry_past", "Card has expired")
		}
		return nil
	}
}

// firstFieldError reduces ozzo's per-field map to the first failing field in
// display order.
func firstFieldError(err error, order ...string) error {
	var fields validation.Errors
	if !errors.As(err, &fields) {
		return common.NewValidationError("", err.Error())
	}
	for _, name := range order {
		if fe, ok := fields[name]; ok && fe != nil {
			return common.NewValidationError(name, messageOf(fe))
		}
	}
	return common.NewValidationError("", FormIncomplete)
}

func messageOf(err error) string {
	var verr validation.Error
	if errors.As(err, &verr) {
		return verr.Message()
	}
	return fmt.Sprint(err)
}
