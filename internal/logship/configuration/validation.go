package configuration

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/G-Research/logship/internal/common/config"
)

// Table, schema and database names are spliced into SQL, so they are restricted to plain unquoted identifiers.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierRegex.MatchString(fl.Field().String())
	})
	return v
}

func (c Configuration) Validate() error {
	var result *multierror.Error
	if err := config.ValidationErrors(newValidator().Struct(c)); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Sink.Credential.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Validate checks that exactly one secret is present and that it agrees with Kind when Kind is given.
func (c Credential) Validate() error {
	hasPassword := c.Password != ""
	hasToken := c.Token != ""
	switch {
	case hasPassword && hasToken:
		return errors.New("credential must have exactly one of password or token, not both")
	case !hasPassword && !hasToken:
		return errors.New("credential must have one of password or token")
	case c.Kind == CredentialPassword && !hasPassword:
		return errors.New("credential kind is password but no password was provided")
	case c.Kind == CredentialToken && !hasToken:
		return errors.New("credential kind is token but no token was provided")
	}
	return nil
}

func (c AppConfig) Validate() error {
	var result *multierror.Error
	if err := c.Logging.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Enabled {
		if err := c.Forwarder.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
