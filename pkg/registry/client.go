/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package registry

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/models"
)

var (
	errUnexpectedStatus = errors.New("unexpected response status")
	errMissingResult    = errors.New(`response has no "result" array`)
	errInvalidJSON      = errors.New("response body is not valid JSON")
	errUnknownEncoding  = errors.New("unknown id_encoding")
	errTooManyPages     = errors.New("shell listing did not terminate")
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxBodyBytes       = 8 << 20
	maxErrorBody       = 2048
	maxPages           = 100

	submodelSuffix = "ManufacturingProcess"

	encodingStd = "std"
	encodingURL = "url"
)

// Client is an HTTP Registry.
type Client struct {
	shellsURL   string
	submodelURL string
	idPrefix    string
	encoding    *base64.Encoding
	http        *http.Client
	logger      logger.Logger
}

var _ Registry = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient builds a registry client from configuration.
func NewClient(cfg *models.RegistryConfig, log logger.Logger, opts ...Option) (*Client, error) {
	enc, err := idEncoding(cfg.IDEncoding)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	submodelURL := cfg.SubmodelURL
	if !strings.HasSuffix(submodelURL, "/") {
		submodelURL += "/"
	}

	c := &Client{
		shellsURL:   cfg.ShellsURL,
		submodelURL: submodelURL,
		idPrefix:    strings.TrimSuffix(cfg.IDPrefix, "/"),
		encoding:    enc,
		http:        &http.Client{Timeout: timeout},
		logger:      log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func idEncoding(name string) (*base64.Encoding, error) {
	switch name {
	case encodingStd, "":
		return base64.StdEncoding, nil
	case encodingURL:
		return base64.RawURLEncoding, nil
	default:
		return nil, fmt.Errorf("%w %q (expected %q or %q)", errUnknownEncoding, name, encodingStd, encodingURL)
	}
}

// SubmodelID returns the encoded identifier of a process's manufacturing
// submodel: base64(<prefix>/<process>/ManufacturingProcess).
func SubmodelID(prefix, processName string, enc *base64.Encoding) string {
	return enc.EncodeToString([]byte(prefix + "/" + processName + "/" + submodelSuffix))
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrRegistryUnavailable, err)
}

// ListDevices returns one record per shell object in registry order,
// following cursor pagination when the registry reports it.
func (c *Client) ListDevices(ctx context.Context) ([]models.DeviceRecord, error) {
	var (
		records []models.DeviceRecord
		cursor  string
	)

	for range maxPages {
		page, err := c.shellsPage(ctx, cursor)
		if err != nil {
			return nil, unavailable("list shells", err)
		}

		records = append(records, c.parseShells(page.Result)...)

		if page.Paging.Cursor == "" {
			c.logger.Debug().Int("devices", len(records)).Msg("Listed registry shells")

			return records, nil
		}

		cursor = page.Paging.Cursor
	}

	return nil, unavailable("list shells", errTooManyPages)
}

type shellsPage struct {
	Result []json.RawMessage `json:"result"`
	Paging struct {
		Cursor string `json:"cursor"`
	} `json:"paging_metadata"`
}

func (c *Client) shellsPage(ctx context.Context, cursor string) (*shellsPage, error) {
	endpoint := c.shellsURL

	if cursor != "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, err
		}

		q := u.Query()
		q.Set("cursor", cursor)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var page shellsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidJSON, err)
	}

	if page.Result == nil {
		return nil, errMissingResult
	}

	return &page, nil
}

// shell decodes leniently: fields of an unexpected JSON kind read as empty,
// so an object entry always yields a record.
type shell struct {
	ID               flexString       `json:"id"`
	IDShort          flexString       `json:"idShort"`
	AssetInformation assetInformation `json:"assetInformation"`
}

type assetInformation struct {
	SpecificAssetIDs assetIDList `json:"specificAssetIds"`
}

func (a *assetInformation) UnmarshalJSON(b []byte) error {
	if !isJSONKind(b, '{') {
		return nil
	}

	type plain assetInformation

	return json.Unmarshal(b, (*plain)(a))
}

type specificAssetID struct {
	Name  flexString `json:"name"`
	Value flexString `json:"value"`
}

// assetIDList skips elements that are not objects.
type assetIDList []specificAssetID

func (l *assetIDList) UnmarshalJSON(b []byte) error {
	if !isJSONKind(b, '[') {
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(b, &elems); err != nil {
		return err
	}

	for _, elem := range elems {
		if !isJSONKind(elem, '{') {
			continue
		}

		var id specificAssetID
		if err := json.Unmarshal(elem, &id); err != nil {
			return err
		}

		*l = append(*l, id)
	}

	return nil
}

// flexString accepts a JSON string or number. Any other kind reads as "".
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())

		return nil
	}

	*f = ""

	return nil
}

func isJSONKind(b []byte, open byte) bool {
	trimmed := bytes.TrimSpace(b)

	return len(trimmed) > 0 && trimmed[0] == open
}

func (c *Client) parseShells(entries []json.RawMessage) []models.DeviceRecord {
	records := make([]models.DeviceRecord, 0, len(entries))

	for i, raw := range entries {
		if !isJSONKind(raw, '{') {
			c.logger.Warn().Int("index", i).Msg("Skipping non-object registry entry")

			continue
		}

		var s shell
		if err := json.Unmarshal(raw, &s); err != nil {
			c.logger.Warn().Int("index", i).Err(err).Msg("Registry entry partially decoded")
		}

		records = append(records, s.record())
	}

	return records
}

func (s *shell) record() models.DeviceRecord {
	rec := models.DeviceRecord{Name: string(s.IDShort), Source: string(s.ID)}
	if rec.Name == "" {
		rec.Name = models.DefaultDeviceName
	}

	rec.IP = s.assetID("ip")
	if rec.IP == "" {
		return rec
	}

	rec.Port = s.assetID("port")
	if rec.Port == "" {
		rec.Port = models.DefaultDevicePort
	}

	return rec
}

// assetID returns the first specific asset id value named name.
func (s *shell) assetID(name string) string {
	for _, id := range s.AssetInformation.SpecificAssetIDs {
		if string(id.Name) == name {
			return strings.TrimSpace(string(id.Value))
		}
	}

	return ""
}

// GetSubmodel returns the manufacturing submodel of processName verbatim.
func (c *Client) GetSubmodel(ctx context.Context, processName string) (json.RawMessage, error) {
	id := SubmodelID(c.idPrefix, processName, c.encoding)

	body, err := c.get(ctx, c.submodelURL+id)
	if err != nil {
		return nil, unavailable("get submodel "+processName, err)
	}

	if !json.Valid(body) {
		return nil, unavailable("get submodel "+processName, errInvalidJSON)
	}

	c.logger.Debug().Str("process", processName).Str("submodel_id", id).Msg("Fetched submodel")

	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return nil, fmt.Errorf("%w %d: %s", errUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}
