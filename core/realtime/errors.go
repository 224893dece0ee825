package realtime

import (
	"fmt"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
)

var (
	ErrDeactivated         = errors.New("realtime: binding deactivated")
	ErrAlreadyActivated    = errors.New("realtime: binding already activated")
	ErrInvalidSubscription = errors.New("realtime: invalid subscription")
)

// CheckSubscription validates the arguments of Subscriber.Subscribe. Empty kinds are valid.
// The returned error wraps ErrInvalidSubscription.
func CheckSubscription(collection string, kinds []EventKind, fn func(Event)) error {
	return checkArgs(
		vala.StringNotEmpty(collection, "collection"),
		given(fn != nil, "fn"),
		validKinds(kinds),
	)
}

func checkArgs(checks ...vala.Checker) error {
	if err := vala.BeginValidation().Validate(checks...).Check(); err != nil {
		return errors.Wrap(ErrInvalidSubscription, err.Error())
	}
	return nil
}

// given checks that a func or interface argument was provided; vala.IsNotNil misses typed nils.
func given(ok bool, param string) vala.Checker {
	return func() (bool, string) {
		if ok {
			return true, ""
		}
		return false, "Parameter was nil: " + param
	}
}

func validKinds(kinds []EventKind) vala.Checker {
	return func() (bool, string) {
		for _, k := range kinds {
			if !k.Valid() {
				return false, fmt.Sprintf("Parameter kinds has an unknown kind: %q", k)
			}
		}
		return true, ""
	}
}

// FetchError is recorded when the fetch function of a Binding fails.
type FetchError struct {
	Collection string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %q: %v", e.Collection, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SubscriptionError is recorded when a Binding cannot subscribe to its collection.
type SubscriptionError struct {
	Collection string
	Err        error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscribing to %q: %v", e.Collection, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

func IsSubscriptionError(err error) bool {
	var se *SubscriptionError
	return errors.As(err, &se)
}
