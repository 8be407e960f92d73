package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgError "github.com/AzielCF/aegisx/pkg/error"
	pkgUtils "github.com/AzielCF/aegisx/pkg/utils"
	"github.com/sirupsen/logrus"
)

// AdminNotifier delivers security-relevant events (lockdown activations,
// notify_admin decisions, storage failures) to the configured admin webhooks.
type AdminNotifier struct {
	urls               []string
	secret             string
	insecureSkipVerify bool
	timeout            time.Duration

	// overridable in tests
	submitFn func(ctx context.Context, payload map[string]any, url string) error
}

func NewAdminNotifier(urls []string, secret string, insecureSkipVerify bool, timeout time.Duration) *AdminNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	n := &AdminNotifier{
		urls:               urls,
		secret:             secret,
		insecureSkipVerify: insecureSkipVerify,
		timeout:            timeout,
	}
	n.submitFn = n.submitWebhook
	return n
}

// Notify attempts to deliver the event to every configured webhook URL.
// It only returns an error when all deliveries fail. Partial failures are
// logged and suppressed so successful targets still receive the event.
func (n *AdminNotifier) Notify(ctx context.Context, eventName string, payload map[string]any) error {
	total := len(n.urls)
	logrus.WithFields(logrus.Fields{
		"event":    eventName,
		"webhooks": total,
	}).Info("[NOTIFY] Forwarding event to configured webhook(s)")

	if total == 0 {
		logrus.WithField("event", eventName).Debug("[NOTIFY] No webhook configured; skipping dispatch")
		return nil
	}

	body := map[string]any{
		"event":     eventName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"payload":   payload,
	}

	var (
		failed    []string
		successes int
	)
	for _, url := range n.urls {
		if err := n.submitFn(ctx, body, url); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", url, err))
			logrus.Warnf("Failed forwarding %s to %s: %v", eventName, url, err)
			continue
		}
		successes++
	}

	if len(failed) == total {
		return pkgError.WebhookError(fmt.Sprintf("all webhook URLs failed for %s: %s", eventName, strings.Join(failed, "; ")))
	}

	if len(failed) > 0 {
		logrus.Warnf("Some webhook URLs failed for %s (succeeded: %d/%d): %s", eventName, successes, total, strings.Join(failed, "; "))
	}

	return nil
}

// submitWebhook delivers the payload to a single URL
func (n *AdminNotifier) submitWebhook(ctx context.Context, payload map[string]any, url string) error {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: n.insecureSkipVerify,
		},
	}
	client := &http.Client{
		Timeout:   n.timeout,
		Transport: transport,
	}

	postBody, err := json.Marshal(payload)
	if err != nil {
		return pkgError.WebhookError(fmt.Sprintf("Failed to marshal body: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return pkgError.WebhookError(fmt.Sprintf("error when create http object %v", err))
	}

	secretKey := []byte(n.secret)
	signature, err := pkgUtils.GetMessageDigestOrSignature(postBody, secretKey)
	if err != nil {
		return pkgError.WebhookError(fmt.Sprintf("error when create signature %v", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set("X-Hub-Signature-256", fmt.Sprintf("sha256=%s", signature))
	}

	var attempt int
	var maxAttempts = 3
	var sleepDuration = 500 * time.Millisecond

	for attempt = 0; attempt < maxAttempts; attempt++ {
		req.Body = io.NopCloser(bytes.NewBuffer(postBody))
		resp, err := client.Do(req)
		if err == nil {
			defer resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				logrus.Debugf("Successfully submitted webhook on attempt %d", attempt+1)
				return nil
			}
			err = fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		logrus.Warnf("Attempt %d to submit webhook failed: %v", attempt+1, err)
		if attempt < maxAttempts-1 {
			time.Sleep(sleepDuration)
			sleepDuration *= 2
		}
	}

	return pkgError.WebhookError(fmt.Sprintf("error when submit webhook after %d attempts: %v", attempt, err))
}
