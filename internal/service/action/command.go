package action

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/oshokin/safety-monitor/internal/config"
	"github.com/oshokin/safety-monitor/internal/logger"
	"github.com/oshokin/safety-monitor/internal/version"
)

// Supported actions.
const (
	ActionOk             = "ok"
	ActionHelp           = "help"
	ActionPanic          = "panic"
	ActionFallNoResponse = "fall-no-response"
	ActionEmergencyCall  = "emergency-call"
)

// Actions lists every supported action.
var Actions = []string{ActionOk, ActionHelp, ActionPanic, ActionFallNoResponse, ActionEmergencyCall}

// Options configures one action request.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// StatusAddress overrides the status server address from config when specified.
	StatusAddress string

	// Action is one of Actions.
	Action string

	// ElapsedMs is sent with fall-no-response.
	ElapsedMs int64

	// Contact is the contact index sent with emergency-call.
	Contact int
}

// defaultRetryInterval defines the delay between attempts.
const defaultRetryInterval = 1 * time.Second

var (
	// errNoStatusAddress is returned when the status server is disabled and no override is given.
	errNoStatusAddress = errors.New("status server address is not configured")
	// errRejected is returned when the monitor refuses the action.
	errRejected = errors.New("action rejected")
)

// Run sends the action, retrying until success or cancellation.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "safety-action")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	address := cfg.Status.ListenAddress
	if opts.StatusAddress != "" {
		address = opts.StatusAddress
	}

	if address == "" {
		return errNoStatusAddress
	}

	client := resty.New().
		SetBaseURL("http://" + address).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", version.UserAgent())

	logger.InfoKV(ctx, "Sending action", "status_address", address, "action", opts.Action)

	// attempt tries once, returns (completed, error).
	attempt := func() (bool, error) {
		resp, err := request(ctx, client, opts).Post("/actions/{action}")
		if err != nil {
			// Log error but continue retrying for transient failures.
			logger.ErrorKV(ctx, "Action request failed", "error", err)

			return false, nil
		}

		switch code := resp.StatusCode(); {
		case code == http.StatusAccepted:
			logger.Info(ctx, "Action accepted")

			return true, nil
		case code >= http.StatusInternalServerError || code == http.StatusTooManyRequests:
			logger.WarnKV(ctx, "Monitor is busy, retrying", "status", code)

			return false, nil
		default:
			return false, fmt.Errorf("%w: %d %s", errRejected, code, resp.String())
		}
	}

	if done, err := attempt(); err != nil {
		return err
	} else if done {
		return nil
	}

	ticker := time.NewTicker(defaultRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil {
				return err
			}

			if done {
				return nil
			}
		}
	}
}

// request builds the request for opts.
func request(ctx context.Context, client *resty.Client, opts *Options) *resty.Request {
	req := client.R().
		SetContext(ctx).
		SetPathParam("action", opts.Action)

	switch opts.Action {
	case ActionFallNoResponse:
		req.SetQueryParam("elapsed_ms", strconv.FormatInt(opts.ElapsedMs, 10))
	case ActionEmergencyCall:
		req.SetQueryParam("contact", strconv.Itoa(opts.Contact))
	}

	return req
}
