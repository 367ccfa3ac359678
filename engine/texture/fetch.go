package texture

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Fetch reads the raw bytes behind url. Supported forms are http(s) URLs, base64
// data URIs and local file paths.
//
// Parameters:
//   - ctx: cancels an in-progress HTTP request
//   - url: the texture location
//
// Returns:
//   - io.ReadCloser: the texture bytes; the caller closes it
//   - error: error if the source cannot be opened
func Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("texture request %q: %w", url, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("texture fetch %q: %w", url, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("texture fetch %q: %s", url, resp.Status)
		}
		return resp.Body, nil
	case strings.HasPrefix(url, "data:"):
		data, err := decodeDataURI(url)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	f, err := os.Open(url)
	if err != nil {
		return nil, fmt.Errorf("texture open: %w", err)
	}
	return f, nil
}

// decodeDataURI decodes a base64 data URI into raw bytes.
func decodeDataURI(uri string) ([]byte, error) {
	// Format: data:[<mediatype>][;base64],<data>
	commaIdx := strings.Index(uri, ",")
	if commaIdx < 0 {
		return nil, fmt.Errorf("malformed data URI: no comma found")
	}
	header := uri[5:commaIdx]
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("data URI must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(uri[commaIdx+1:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}
