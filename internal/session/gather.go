package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/bcrypt"

	"github.com/imamik/archer/internal/config"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/validate"
)

// AcceptToken is the exact reply that confirms an install.
const AcceptToken = "YES"

// ErrUserAborted is returned when the user cancels a prompt or declines the
// confirmation.
var ErrUserAborted = errors.New("aborted by user")

type options struct {
	bcryptCost   int
	passwordHash string
	log          logr.Logger
}

// Option configures Gather.
type Option func(*options)

// WithBcryptCost sets the cost used to hash the password.
func WithBcryptCost(cost int) Option {
	return func(o *options) { o.bcryptCost = cost }
}

// WithPasswordHash supplies an existing bcrypt hash; the password question
// is not asked.
func WithPasswordHash(hash string) Option {
	return func(o *options) { o.passwordHash = hash }
}

// WithLogger logs rejected answers at V(1). Reasons never contain secrets.
func WithLogger(log logr.Logger) Option {
	return func(o *options) { o.log = log }
}

// Gather asks every question in order, re-asking until the answer is valid,
// then asks for confirmation. Nothing is returned unless the reply to the
// confirmation equals AcceptToken.
func Gather(ctx context.Context, p Prompter, v *validate.Validator, opts ...Option) (*Session, error) {
	o := options{bcryptCost: bcrypt.DefaultCost, log: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{}
	var vctx validate.Context
	var password string

	for _, q := range Questions() {
		if q.Kind == validate.KindPassword && o.passwordHash != "" {
			if _, err := bcrypt.Cost([]byte(o.passwordHash)); err != nil {
				return nil, provisioning.NewError(provisioning.KindValidationFailed, "answers",
					fmt.Errorf("passwordHash is not a bcrypt hash: %w", err))
			}
			continue
		}

		f, err := ask(ctx, p, v, q, vctx, o.log)
		if err != nil {
			return nil, err
		}
		if f.Secret {
			password = f.Value
			f.Raw, f.Value = "", ""
		}
		if err := s.set(f.Kind, f.Value); err != nil {
			return nil, err
		}

		if f.Kind == validate.KindDevice {
			capacity, err := v.DeviceCapacity(f.Value)
			if err != nil {
				return nil, err
			}
			vctx.DeviceCapacity = capacity
			s.capacityBytes = capacity
		}
	}

	reply, err := p.Confirm(ctx, s.Summary(), AcceptToken)
	if err != nil {
		return nil, promptError("confirm", err)
	}
	if reply != AcceptToken {
		return nil, provisioning.NewError(provisioning.KindUserAborted, "confirm",
			fmt.Errorf("%w: expected %q", ErrUserAborted, AcceptToken))
	}

	if o.passwordHash != "" {
		s.passwordHash = o.passwordHash
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), o.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		s.passwordHash = string(hash)
	}

	return s, nil
}

// FromAnswers builds a Session from an answers document with the same
// validation as Gather. assumeYes stands in for typing the accept token.
func FromAnswers(ctx context.Context, a config.Answers, v *validate.Validator, assumeYes bool, opts ...Option) (*Session, error) {
	if a.PasswordHash != "" {
		opts = append(opts, WithPasswordHash(a.PasswordHash))
	}
	return Gather(ctx, NewAnswersPrompter(a, assumeYes), v, opts...)
}

// ask loops on one question until the answer validates.
func ask(ctx context.Context, p Prompter, v *validate.Validator, q Question, vctx validate.Context, log logr.Logger) (Field, error) {
	f := Field{Kind: q.Kind, Secret: q.Secret}
	for {
		if err := ctx.Err(); err != nil {
			return f, promptError(string(q.Kind), err)
		}

		var raw string
		var err error
		if q.Secret {
			raw, err = p.AskSecret(ctx, q)
		} else {
			raw, err = p.Ask(ctx, q)
		}
		if err != nil {
			return f, promptError(string(q.Kind), err)
		}
		if raw == "" {
			raw = q.Default
		}

		res, err := v.Validate(q.Kind, raw, vctx)
		if err != nil {
			return f, err
		}
		f.Raw = raw
		if res.Valid {
			f.State, f.Value, f.Reason = Valid, res.Value, ""
			return f, nil
		}

		f.State, f.Reason = Invalid, res.Reason
		q.Problem = res.Reason
		log.V(1).Info("answer rejected", "field", string(q.Kind), "reason", res.Reason)
	}
}

// promptError classifies a prompter failure. Interrupts and explicit
// cancellation become UserAborted.
func promptError(op string, err error) error {
	var pe *provisioning.Error
	switch {
	case errors.As(err, &pe):
		return err
	case errors.Is(err, ErrUserAborted), errors.Is(err, context.Canceled), errors.Is(err, ErrConfirmationRequired):
		return provisioning.NewError(provisioning.KindUserAborted, op, err)
	default:
		return fmt.Errorf("prompt %s: %w", op, err)
	}
}
