package wizard

import (
	"context"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/domain/account"
)

// RegistrationSteps is the length of the registration wizard: personal data,
// contact, address, account, payment.
const RegistrationSteps = 5

const (
	MsgUserCreated = "Usuario creado con éxito"
	MsgUserFailed  = "Error al crear el usuario"
)

const defaultMobilePrefix = "+"

// RegistrationFields is what the user typed into the registration wizard.
// Card fields stay in the wizard and are never sent anywhere.
type RegistrationFields struct {
	// Step 1.
	FirstName     string `json:"firstName"`
	SecondName    string `json:"secondName"`
	FirstSurname  string `json:"firstSurname"`
	SecondSurname string `json:"secondSurname"`
	Sex           string `json:"sex"`
	Cedula        string `json:"cedula"`
	// Step 2.
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	MobilePrefix string `json:"mobilePrefix"`
	MobileNumber string `json:"mobileNumber"`
	// Step 3.
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	Country     string `json:"country"`
	AddressType string `json:"addressType"`
	// Step 4.
	Username string `json:"username"`
	Password string `json:"password"`
	// Step 5.
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

func emptyRegistrationFields() RegistrationFields {
	return RegistrationFields{MobilePrefix: defaultMobilePrefix}
}

// Redacted returns a copy safe to show back to the browser: the password and
// CVV are masked and the card number keeps only its last four digits.
func (f RegistrationFields) Redacted() RegistrationFields {
	f.Password = mask(f.Password, 0)
	f.CVV = mask(f.CVV, 0)
	f.CardNumber = mask(f.CardNumber, 4)
	return f
}

func mask(s string, keep int) string {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return ""
	}
	if len(s) <= keep {
		return s
	}
	return strings.Repeat("*", len(s)-keep) + s[len(s)-keep:]
}

func keepSecret(in, stored string, keep int) string {
	if stored != "" && strings.Contains(in, "*") && in == mask(stored, keep) {
		return stored
	}
	return in
}

// Registration maps the wizard onto a backend signup request.
func (f RegistrationFields) Registration() account.Registration {
	return account.Registration{
		Username:  strings.TrimSpace(f.Username),
		Password1: f.Password,
		Password2: f.Password,
		Email:     strings.TrimSpace(f.Email),
		FirstName: joinNonEmpty(" ", f.FirstName, f.SecondName),
		LastName:  joinNonEmpty(" ", f.FirstSurname, f.SecondSurname),
		Cedula:    strings.TrimSpace(f.Cedula),
		Address:   joinNonEmpty(", ", f.Address, f.City, f.State, f.PostalCode, f.Country),
		Phone:     f.phone(),
	}
}

// phone prefers the mobile number; the landline is used when no mobile was
// given.
func (f RegistrationFields) phone() string {
	mobile := strings.TrimSpace(f.MobileNumber)
	if mobile == "" {
		return strings.TrimSpace(f.PhoneNumber)
	}
	prefix := strings.TrimSpace(f.MobilePrefix)
	if prefix == "" || prefix == defaultMobilePrefix {
		return mobile
	}
	return prefix + " " + mobile
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// Signer registers new accounts.
type Signer interface {
	Signup(ctx context.Context, r account.Registration) error
}

// RegistrationState is a redacted snapshot of a RegistrationWizard.
type RegistrationState struct {
	Step   int
	Total  int
	Fields RegistrationFields
}

// RegistrationWizard is the five-step account creation wizard.
type RegistrationWizard struct {
	signer Signer

	mu     sync.Mutex
	steps  Steps
	fields RegistrationFields
}

func NewRegistration(signer Signer) *RegistrationWizard {
	return &RegistrationWizard{
		signer: signer,
		steps:  NewSteps(RegistrationSteps),
		fields: emptyRegistrationFields(),
	}
}

func (w *RegistrationWizard) State() RegistrationState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state()
}

func (w *RegistrationWizard) state() RegistrationState {
	return RegistrationState{Step: w.steps.Current(), Total: w.steps.Total(), Fields: w.fields.Redacted()}
}

// SetFields replaces all fields. An empty mobile prefix falls back to "+".
func (w *RegistrationWizard) SetFields(f RegistrationFields) RegistrationState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if strings.TrimSpace(f.MobilePrefix) == "" {
		f.MobilePrefix = defaultMobilePrefix
	}
	// Masked values echoed back from State keep the stored secret.
	f.Password = keepSecret(f.Password, w.fields.Password, 0)
	f.CVV = keepSecret(f.CVV, w.fields.CVV, 0)
	f.CardNumber = keepSecret(f.CardNumber, w.fields.CardNumber, 4)
	w.fields = f
	return w.state()
}

func (w *RegistrationWizard) Next() RegistrationState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.steps.Next()
	return w.state()
}

func (w *RegistrationWizard) Prev() RegistrationState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.steps.Prev()
	return w.state()
}

// Submit signs the user up. Card details are dropped on success together
// with every other field.
func (w *RegistrationWizard) Submit(ctx context.Context) (Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.steps.IsFinal() {
		return Outcome{}, ErrNotFinalStep
	}
	if err := w.signer.Signup(ctx, w.fields.Registration()); err != nil {
		return Outcome{Message: MsgUserFailed}, errors.Wrap(err, "signup")
	}

	w.fields = emptyRegistrationFields()
	w.steps.Reset()
	return Outcome{OK: true, Message: MsgUserCreated}, nil
}
