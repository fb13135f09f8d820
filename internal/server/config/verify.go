package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var verifier = newVerifier()

func newVerifier() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		return name
	})
	_ = v.RegisterValidation("listen_addr", func(fl validator.FieldLevel) bool {
		return isListenAddr(fl.Field().String())
	})
	return v
}

// isListenAddr accepts host:port with a numeric port; the host may be
// empty, a name or an IP literal.
func isListenAddr(s string) bool {
	_, port, err := net.SplitHostPort(s)
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}

// Verify validates the configuration structure. Each violation is
// reported with its dotted key, e.g. "log.level".
func Verify(cfg *ServerConfig) error {
	var errs []error

	if err := verifier.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%s: %s", dottedKey(fe.Namespace()), describe(fe)))
		}
	}

	if cfg.Status.Enabled && cfg.Status.Addr == "" {
		errs = append(errs, errors.New("status.addr: is required when status.enabled is true"))
	}

	return errors.Join(errs...)
}

// dottedKey strips the root struct name: "ServerConfig.log.level" ->
// "log.level".
func dottedKey(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "file":
		return fmt.Sprintf("file %q does not exist", fe.Value())
	case "listen_addr":
		return fmt.Sprintf("%q is not a host:port address", fe.Value())
	case "cidr|ip":
		return fmt.Sprintf("%q is not an IP or CIDR", fe.Value())
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
