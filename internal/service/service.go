// Package service holds the coordinators that sequence a backend call with
// store dispatches and user notifications. Every coordinator logs and
// notifies its own failures; returned errors are for callers that need a
// status, never something the view has to recover from.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"minimarket/internal/apiclient"
	"minimarket/internal/notify"
	"minimarket/internal/store"
	"minimarket/internal/validation"

	"go.uber.org/zap"
)

// Backend is the subset of the API client the coordinators use
type Backend interface {
	Public(ctx context.Context, method, endpoint string, body any) (*apiclient.Response, error)
	Authed(ctx context.Context, method, endpoint string, body any) (*apiclient.Response, error)
	Form(ctx context.Context, method, endpoint string, form *apiclient.Form) (*apiclient.Response, error)
}

type base struct {
	api      Backend
	store    *store.Store
	notifier notify.Notifier
	logger   *zap.Logger
}

func newBase(api Backend, st *store.Store, notifier notify.Notifier, logger *zap.Logger, name string) base {
	return base{api: api, store: st, notifier: notifier, logger: logger.Named(name)}
}

// mutate runs a confirmed mutation: the progress notice is always closed
// before apply runs and before any result is shown.
func (b *base) mutate(
	progress, success, failure string,
	call func() (*apiclient.Response, error),
	apply func(resp *apiclient.Response) error,
) error {
	done := b.notifier.Progress(progress)
	resp, err := call()
	if err == nil {
		err = resp.Err()
	}
	done()

	if err == nil {
		err = apply(resp)
	}
	if err != nil {
		b.fail(failure, err)
		return err
	}

	b.notifier.Success(success, "")
	return nil
}

// reject reports a request refused before reaching the backend
func (b *base) reject(title string, err error) error {
	b.logger.Info("Request rejected locally", zap.String("action", title), zap.Error(err))
	b.notifier.Error(title, UserMessage(err))
	return err
}

func (b *base) fail(title string, err error) {
	b.logger.Error(title, zap.Error(err))
	b.notifier.Error(title, UserMessage(err))
}

// load runs a background fetch. Failures leave the store untouched.
func (b *base) load(ctx context.Context, what string, call func(ctx context.Context) (*apiclient.Response, error), apply func(resp *apiclient.Response) error) error {
	resp, err := call(ctx)
	if err == nil {
		err = resp.Err()
	}
	if err == nil {
		err = apply(resp)
	}
	if err != nil {
		b.logger.Error("Failed to load "+what, zap.Error(err))
		return fmt.Errorf("failed to load %s: %w", what, err)
	}
	return nil
}

// UserMessage turns any coordinator error into text fit for a notification
func UserMessage(err error) string {
	if msg, ok := apiclient.Message(err); ok {
		return notify.Translate(msg)
	}
	if fieldErrs, ok := validation.FieldErrors(err); ok && len(fieldErrs) > 0 {
		return fmt.Sprintf("Check the %s field", fieldErrs[0].Field())
	}
	switch {
	case errors.Is(err, apiclient.ErrTimeout):
		return "The server took too long to respond. Please try again."
	case errors.Is(err, apiclient.ErrNetwork):
		return "Could not reach the server. Check your connection."
	case errors.Is(err, apiclient.ErrMalformedResponse):
		return "The server sent an unexpected response."
	case apiclient.StatusCode(err) == 401:
		return "Your session has expired. Please sign in again."
	}
	return err.Error()
}

// decodeID reads an id the backend may send either as a string or a number
func decodeID(resp *apiclient.Response, field string) (string, error) {
	var raw json.RawMessage
	if err := resp.Decode(field, &raw); err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%w: field %q is not an id", apiclient.ErrMalformedResponse, field)
	}
	return n.String(), nil
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}
