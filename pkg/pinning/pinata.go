package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// Pinata defaults.
const (
	DefaultPinataAPIURL     = "https://api.pinata.cloud"
	DefaultPinataGatewayURL = "https://gateway.pinata.cloud"

	pinFilePath = "/pinning/pinFileToIPFS"
)

// PinataClient pins files to IPFS through the Pinata HTTP API.
type PinataClient struct {
	apiURL     string
	gatewayURL string
	apiKey     string
	secretKey  string
	httpClient *http.Client
}

var _ Pinner = (*PinataClient)(nil)

// PinataOption configures a PinataClient.
type PinataOption func(*PinataClient)

// WithPinataAPIURL overrides the API base URL.
func WithPinataAPIURL(u string) PinataOption {
	return func(c *PinataClient) {
		if u != "" {
			c.apiURL = strings.TrimRight(u, "/")
		}
	}
}

// WithGatewayURL sets the gateway used to build returned URIs.
func WithGatewayURL(u string) PinataOption {
	return func(c *PinataClient) {
		if u != "" {
			c.gatewayURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) PinataOption {
	return func(c *PinataClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewPinataClient creates a Pinata client using API key authentication.
func NewPinataClient(apiKey, secretKey string, opts ...PinataOption) (*PinataClient, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(secretKey) == "" {
		return nil, fmt.Errorf("pinata: api key and secret are required")
	}
	c := &PinataClient{
		apiURL:     DefaultPinataAPIURL,
		gatewayURL: DefaultPinataGatewayURL,
		apiKey:     apiKey,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// PinFile uploads r as a single file and returns its gateway URI.
func (c *PinataClient) PinFile(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if r == nil {
		return "", uploadErr("pinata", fmt.Errorf("empty file %q", name))
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", uploadErr("pinata", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", uploadErr("pinata", fmt.Errorf("read %q: %w", name, err))
	}

	meta, _ := json.Marshal(map[string]string{"name": name})
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", uploadErr("pinata", err)
	}
	if err := mw.Close(); err != nil {
		return "", uploadErr("pinata", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+pinFilePath, &body)
	if err != nil {
		return "", uploadErr("pinata", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("pinata_api_key", c.apiKey)
	req.Header.Set("pinata_secret_api_key", c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", uploadErr("pinata", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", uploadErr("pinata", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var out pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", uploadErr("pinata", fmt.Errorf("decode response: %w", err))
	}
	if out.IpfsHash == "" {
		return "", uploadErr("pinata", fmt.Errorf("response has no IpfsHash"))
	}

	return c.gatewayURL + "/ipfs/" + out.IpfsHash, nil
}

// PinJSON marshals v and pins it as an application/json file.
func (c *PinataClient) PinJSON(ctx context.Context, name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", uploadErr("pinata", fmt.Errorf("marshal %q: %w", name, err))
	}
	return c.PinFile(ctx, name, "application/json", bytes.NewReader(data))
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
