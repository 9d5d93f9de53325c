package sms

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vitabid/marketplace/internal/logging"
)

const defaultBaseURL = "https://sens.apigw.ntruss.com"

// Client sends SMS messages through the Naver SENS API.
type Client struct {
	AccessKey string
	SecretKey string
	ServiceID string
	From      string

	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(accessKey, secretKey, serviceID, from string) *Client {
	return &Client{
		AccessKey:  accessKey,
		SecretKey:  secretKey,
		ServiceID:  serviceID,
		From:       from,
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type smsRequest struct {
	Type     string       `json:"type"`
	From     string       `json:"from"`
	Content  string       `json:"content"`
	Messages []smsMessage `json:"messages"`
}

type smsMessage struct {
	To string `json:"to"`
}

func (c *Client) SendVerificationCode(ctx context.Context, phone, code string) error {
	l := logging.FromContext(ctx).With("component", "sms", "to", phone)

	uri := fmt.Sprintf("/sms/v2/services/%s/messages", c.ServiceID)
	payload := smsRequest{
		Type:     "SMS",
		From:     c.From,
		Content:  fmt.Sprintf("[VitaBid] verification code: %s", code),
		Messages: []smsMessage{{To: phone}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+uri, bytes.NewReader(body))
	if err != nil {
		return err
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("x-ncp-apigw-timestamp", ts)
	req.Header.Set("x-ncp-iam-access-key", c.AccessKey)
	req.Header.Set("x-ncp-apigw-signature-v2", c.sign(http.MethodPost, uri, ts))

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		l.Error("sms request failed", "error", err)
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		respBody, _ := io.ReadAll(res.Body)
		l.Error("sms delivery rejected", "status", res.StatusCode, "body", string(respBody))
		return fmt.Errorf("sms: delivery failed with status %d", res.StatusCode)
	}
	l.Info("verification sms sent")
	return nil
}

// sign produces the SENS request signature: HMAC-SHA256 over
// "<method> <uri>\n<timestamp>\n<access key>", base64-encoded.
func (c *Client) sign(method, uri, ts string) string {
	mac := hmac.New(sha256.New, []byte(c.SecretKey))
	mac.Write([]byte(method + " " + uri + "\n" + ts + "\n" + c.AccessKey))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
