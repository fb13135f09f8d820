package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config is the immutable configuration of one gateway connection.
type Config struct {
	// Environment selects the gateway. Unknown values fall back to
	// development.
	Environment Environment `json:"environment"`

	// Identifier is the app identifier registered with the gateway,
	// typically reverse-DNS (com.example.app). Informational only.
	Identifier string `json:"identifier" validate:"nonblank"`

	// CredentialPath points at the PKCS#12 client credential bundle.
	CredentialPath string `json:"credential_path" validate:"nonblank"`

	// CredentialPassword unlocks the bundle. Empty means no password.
	CredentialPassword string `json:"-"`
}

// NewConfig builds a Config from raw host-supplied values. A nil password
// is normalised to the empty string.
func NewConfig(environment, identifier, credentialPath string, credentialPassword *string) Config {
	password := ""
	if credentialPassword != nil {
		password = *credentialPassword
	}
	return Config{
		Environment:        Environment(environment),
		Identifier:         identifier,
		CredentialPath:     credentialPath,
		CredentialPassword: password,
	}
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that all required fields are present.
// It returns an ErrInvalidConfiguration-coded error listing the
// offending fields.
func (c Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrInvalidConfiguration.WithCause(err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return ErrInvalidConfiguration.WithDetails(
		fmt.Sprintf("required field(s) missing or empty: %s", strings.Join(fields, ", ")))
}

// ResolvedEnvironment returns the environment actually used for endpoint
// selection.
func (c Config) ResolvedEnvironment() Environment {
	return ParseEnvironment(string(c.Environment))
}

// Endpoint returns the gateway endpoint this configuration binds to.
func (c Config) Endpoint() Endpoint {
	return ResolveEndpoint(c.ResolvedEnvironment())
}

// Password returns the normalised credential password.
func (c Config) Password() string {
	return c.CredentialPassword
}

// HasPassword reports whether a non-empty password is configured.
func (c Config) HasPassword() bool {
	return c.CredentialPassword != ""
}

// String renders the configuration without the password.
func (c Config) String() string {
	return fmt.Sprintf("environment=%s identifier=%s credential_path=%s password_set=%t",
		c.ResolvedEnvironment(), c.Identifier, c.CredentialPath, c.HasPassword())
}
