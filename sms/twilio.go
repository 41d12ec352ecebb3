// Package sms provides SMS delivery backends for verification codes.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/servxpert/authcore/core"
)

// TwilioSender delivers SMS via the Twilio Messages REST API.
type TwilioSender struct {
	AccountSID string
	AuthToken  string
	From       string

	// BaseURL overrides the Twilio API endpoint. Tests point it at a local
	// server.
	BaseURL string

	HTTPClient *http.Client
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{AccountSID: accountSID, AuthToken: authToken, From: from}
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *TwilioSender) Send(ctx context.Context, phone, message string) error {
	if t.AccountSID == "" || t.AuthToken == "" || t.From == "" {
		return fmt.Errorf("%w: twilio credentials missing", core.ErrProviderConfig)
	}
	base := t.BaseURL
	if base == "" {
		base = "https://api.twilio.com"
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", base, t.AccountSID)

	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", t.From)
	form.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}
	req.SetBasicAuth(t.AccountSID, t.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := t.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var terr twilioError
	_ = json.Unmarshal(body, &terr)

	// Twilio's error codes distinguish caller faults from delivery faults.
	switch terr.Code {
	case 21211: // invalid To number
		return fmt.Errorf("%w: twilio rejected number", core.ErrInvalidDestination)
	case 21608: // unverified number on trial account
		return fmt.Errorf("%w: number not verified with provider", core.ErrUnverifiedDestination)
	case 21614: // To number cannot receive SMS
		return fmt.Errorf("%w: number cannot receive SMS", core.ErrUndeliverableDestination)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: twilio auth failed", core.ErrProviderConfig)
	}
	return fmt.Errorf("%w: twilio status %d code %d", core.ErrProviderUnavailable, resp.StatusCode, terr.Code)
}
