package datasource

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/launchdarkly/go-server-sdk-flagcore/internal/datakinds"
	"github.com/launchdarkly/go-server-sdk-flagcore/internal/ldstoretypes"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldmodel"
)

// allData is the wire shape of a full flags+segments fetch or streaming put (spec §4.7/§4.10).
type allData struct {
	Flags    map[string]ldmodel.FeatureFlag `json:"flags"`
	Segments map[string]ldmodel.Segment     `json:"segments"`
}

// FeatureRequestor fetches the full flag/segment data set over HTTP, honoring ETag/Last-Modified
// caching when polling and bypassing the cache when streaming needs a guaranteed-fresh fetch
// (spec §4.10). It is grounded on the teacher's requestor.go, generalized from a single-feature
// fetch to the latest-all bulk endpoint this spec's data model requires.
type FeatureRequestor struct {
	sdkKey     string
	baseURI    string
	userAgent  string
	httpClient *http.Client
}

// NewFeatureRequestor builds a requestor backed by an ETag-aware cache transport.
func NewFeatureRequestor(sdkKey, baseURI, userAgent string, timeout time.Duration) *FeatureRequestor {
	cachingTransport := &httpcache.Transport{
		Cache:               httpcache.NewMemoryCache(),
		MarkCachedResponses: true,
		Transport:           &http.Transport{},
	}
	return &FeatureRequestor{
		sdkKey:     sdkKey,
		baseURI:    baseURI,
		userAgent:  userAgent,
		httpClient: &http.Client{Transport: cachingTransport, Timeout: timeout},
	}
}

// GetAll fetches the entire flags+segments data set via GET /sdk/latest-all. bypassCache forces a
// fresh fetch (the streaming processor's every self-initiated fetch must be fresh per spec §4.10);
// polling leaves it false so repeated identical fetches are served from cache and collapse to a
// cheap 304.
func (r *FeatureRequestor) GetAll(bypassCache bool) ([]ldstoretypes.Collection, bool, error) {
	req, err := http.NewRequest("GET", r.baseURI+"/sdk/latest-all", nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Add("Authorization", r.sdkKey)
	req.Header.Add("User-Agent", r.userAgent)
	if bypassCache {
		req.Header.Add("Cache-Control", "no-cache")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	// The caching transport turns a 304 revalidation into the cached 200 response, marked with
	// X-From-Cache; either way the data has not changed since the last fetch.
	if resp.StatusCode == http.StatusNotModified || resp.Header.Get(httpcache.XFromCache) == "1" {
		return nil, false, nil
	}
	if err := checkForHTTPError(resp.StatusCode, req.URL.String()); err != nil {
		return nil, false, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}

	var data allData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, false, err
	}
	return toCollections(data), true, nil
}

func toCollections(data allData) []ldstoretypes.Collection {
	flagItems := make([]ldstoretypes.KeyedItemDescriptor, 0, len(data.Flags))
	for key, flag := range data.Flags {
		flag := flag
		ldmodel.PreprocessFlag(&flag)
		flagItems = append(flagItems, ldstoretypes.KeyedItemDescriptor{
			Key:  key,
			Item: ldstoretypes.ItemDescriptor{Version: flag.Version, Item: &flag},
		})
	}
	segmentItems := make([]ldstoretypes.KeyedItemDescriptor, 0, len(data.Segments))
	for key, segment := range data.Segments {
		segment := segment
		ldmodel.PreprocessSegment(&segment)
		segmentItems = append(segmentItems, ldstoretypes.KeyedItemDescriptor{
			Key:  key,
			Item: ldstoretypes.ItemDescriptor{Version: segment.Version, Item: &segment},
		})
	}
	return []ldstoretypes.Collection{
		{Kind: datakinds.Segments, Items: segmentItems},
		{Kind: datakinds.Features, Items: flagItems},
	}
}

// httpStatusError carries an HTTP status code alongside a human-readable message, so callers can
// classify it as permanent or recoverable (spec §7).
type httpStatusError struct {
	Message string
	Code    int
}

func (e httpStatusError) Error() string { return e.Message }

func checkForHTTPError(statusCode int, url string) error {
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return httpStatusError{
			Message: fmt.Sprintf("invalid SDK key when accessing URL: %s", url),
			Code:    statusCode,
		}
	}
	if statusCode == http.StatusNotFound {
		return httpStatusError{
			Message: fmt.Sprintf("resource not found when accessing URL: %s", url),
			Code:    statusCode,
		}
	}
	if statusCode/100 != 2 {
		return httpStatusError{
			Message: fmt.Sprintf("unexpected response code: %d when accessing URL: %s", statusCode, url),
			Code:    statusCode,
		}
	}
	return nil
}

// isHTTPErrorRecoverable reports whether a non-2xx status might resolve on its own if retried
// (spec §7): 401/403 (bad key) and 404 are permanent; everything else recoverable.
func isHTTPErrorRecoverable(statusCode int) bool {
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return false
	}
	if statusCode == http.StatusNotFound {
		return false
	}
	return true
}
