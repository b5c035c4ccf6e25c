package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"

	"github.com/theopenlane/urlscout/internal/domain"
)

const maxRobotsBytes = 512 << 10

// fetchPage GETs the target, following redirects, and keeps up to maxBodyBytes
// of the body decoded to UTF-8
func (p *Prober) fetchPage(ctx context.Context, target *domain.Target) (*HTTPResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.FetchURL(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	contentType := resp.Header.Get("Content-Type")

	var reader io.Reader = resp.Body
	if decoded, err := charset.NewReader(resp.Body, contentType); err == nil {
		reader = decoded
	}

	body, err := io.ReadAll(io.LimitReader(reader, p.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	truncated := int64(len(body)) > p.maxBodyBytes
	if truncated {
		body = body[:p.maxBodyBytes]
	}

	return &HTTPResult{
		RequestedURL:  target.FetchURL(),
		FinalURL:      resp.Request.URL.String(),
		StatusCode:    resp.StatusCode,
		RedirectChain: redirectChain(resp),
		Headers:       resp.Header.Clone(),
		ContentType:   contentType,
		Body:          body,
		BodyTruncated: truncated,
		UsedHTTPS:     resp.Request.URL.Scheme == "https",
	}, nil
}

// redirectChain walks the responses that led to resp, oldest first, ending with resp itself
func redirectChain(resp *http.Response) []Hop {
	chain := []Hop{{URL: resp.Request.URL.String(), Status: resp.StatusCode}}

	for prev := resp.Request.Response; prev != nil; prev = prev.Request.Response {
		chain = append(chain, Hop{URL: prev.Request.URL.String(), Status: prev.StatusCode})
	}

	slices.Reverse(chain)

	return chain
}

// fetchRobots retrieves robots.txt from the target origin and evaluates the
// target path against it. 4xx answers mean every path is allowed.
func (p *Prober) fetchRobots(ctx context.Context, target *domain.Target) (*RobotsResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.Origin()+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	result := &RobotsResult{StatusCode: resp.StatusCode, Path: target.Path}

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return result, nil
	default:
		return nil, fmt.Errorf("%w: robots.txt answered %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("reading robots.txt: %w", err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("%w: robots.txt: %v", ErrMalformedResponse, err)
	}

	result.Fetched = true
	result.Disallowed = !data.TestAgent(target.Path, robotsAgent)

	if group := data.FindGroup(robotsAgent); group != nil {
		result.CrawlDelay = group.CrawlDelay
	}

	return result, nil
}
