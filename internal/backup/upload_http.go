package backup

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// partPutTimeout bounds the transmission of a single part
const partPutTimeout = 15 * time.Minute

// maxPartErrorBody caps how much of an error response is captured
const maxPartErrorBody = 4 * 1024

// putPart transmits part bytes to a pre-signed destination URL and returns
// the ETag acknowledged by the object store. Shared by the backends that
// upload through signed URLs (direct S3 and delegated).
func putPart(ctx context.Context, client *http.Client, url string, body io.ReadSeeker, size int64, headers map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", NewUnexpectedError("failed to build part upload request", err)
	}
	req.ContentLength = size
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", NewNetworkError("part upload request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxPartErrorBody))
		return "", NewNetworkError("object store rejected the part upload", nil).
			WithResponse(strings.TrimSpace(string(data))).
			WithContext("status", resp.StatusCode)
	}

	etag := strings.Trim(resp.Header.Get("ETag"), `"`)
	if etag == "" {
		return "", NewNetworkError("object store returned no ETag for the part", nil)
	}
	return etag, nil
}

func newPartHTTPClient() *http.Client {
	return &http.Client{Timeout: partPutTimeout}
}
