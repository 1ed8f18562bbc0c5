package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// HeaderCache is set on responses to tell whether they came from the
// response cache or the network.
const HeaderCache = "X-Cache"

// Values of HeaderCache.
const (
	// StatusHit means the body was served from the response cache without a request.
	StatusHit = "HIT"

	// StatusMiss means the body came from the network and was stored.
	StatusMiss = "MISS"

	// StatusRevalidated means the server answered 304 and the stored body was reused.
	StatusRevalidated = "REVALIDATED"

	// StatusBypass means the body came from the network but was not stored.
	StatusBypass = "BYPASS"
)

// IsNetworkFetch reports whether a response with the given HeaderCache
// value was confirmed by the network and accepted into the response cache.
func IsNetworkFetch(status string) bool {
	return status == StatusMiss || status == StatusRevalidated
}

// ResponseToEntry converts an HTTP response to a CacheEntry.
// The response body is restored after reading.
// Responses without an ETag get a weak one derived from the body.
func ResponseToEntry(resp *http.Response, now time.Time) (*CacheEntry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &CacheEntry{
		Data:       body,
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		CachedAt:   now,
	}
	if entry.Headers == nil {
		entry.Headers = http.Header{}
	}
	if entry.ETag == "" {
		entry.ETag = WeakETag(body)
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry, nil
}

// WeakETag returns a weak validator for body.
func WeakETag(body []byte) string {
	return fmt.Sprintf(`W/"%016x"`, xxhash.Sum64(body))
}

// EntryToResponse rebuilds an HTTP response for req from a cache entry.
func EntryToResponse(entry *CacheEntry, req *http.Request) *http.Response {
	if entry == nil {
		return nil
	}

	headers := entry.Headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set(HeaderCache, StatusHit)
	headers.Set("Content-Length", strconv.Itoa(len(entry.Data)))

	statusCode := entry.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		StatusCode:    statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(entry.Data)),
		ContentLength: int64(len(entry.Data)),
		Request:       req,
	}
}

// ShouldMakeConditionalRequest determines if we should add conditional
// request headers (If-None-Match or If-Modified-Since) based on the cache entry.
func ShouldMakeConditionalRequest(entry *CacheEntry) bool {
	if entry == nil {
		return false
	}
	return entry.ETag != "" || !entry.LastModified.IsZero()
}

// AddConditionalHeaders adds If-None-Match (ETag) or If-Modified-Since headers
// to the request if the cache entry supports conditional requests.
func AddConditionalHeaders(req *http.Request, entry *CacheEntry) {
	if entry == nil || req == nil {
		return
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}

	// Prefer ETag over Last-Modified (more accurate)
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.Format(http.TimeFormat))
	}
}
