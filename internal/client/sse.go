package client

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"decisionctl/internal/logging"
	"decisionctl/internal/types"
)

const (
	StreamDebugEnv   = "DECISIONCTL_STREAM_DEBUG"
	streamBufferSize = 256
)

func streamDebugEnv() bool {
	return strings.TrimSpace(os.Getenv(StreamDebugEnv)) == "1"
}

func (c *Client) streamLog(msg string, fields ...logging.Field) {
	if c.streamDebug {
		c.logger.Info(msg, fields...)
		return
	}
	c.logger.Debug(msg, fields...)
}

// EventStream attaches to the project's push channel. The returned channel
// closes when the server ends the stream, the connection drops, or cancel is
// called. Frames that fail to parse are logged and skipped.
func (c *Client) EventStream(ctx context.Context, projectID string) (<-chan types.PipelineEvent, func(), error) {
	path, err := projectPath(projectID, "events")
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	url := c.baseURL + path
	requestID := c.newID()
	c.streamLog("stream events open", logging.F("project", projectID), logging.F("url", url), logging.F("request_id", requestID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(requestIDHeader, requestID)

	// Streams outlive the request timeout; cancellation comes from ctx.
	httpClient := &http.Client{Transport: c.http.Transport}
	resp, err := httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		cancel()
		c.streamLog("stream events error", logging.F("project", projectID), logging.F("status", resp.StatusCode))
		return nil, nil, decodeAPIError(resp)
	}

	ch := make(chan types.PipelineEvent, streamBufferSize)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		start := time.Now()
		count := 0
		dropped := 0
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var dataLines []string

		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			if line == "" {
				if len(dataLines) == 0 {
					continue
				}
				payload := strings.Join(dataLines, "\n")
				dataLines = dataLines[:0]
				event, err := types.ParsePipelineEvent([]byte(payload))
				if err != nil {
					dropped++
					c.logger.Warn("stream events malformed frame",
						logging.F("project", projectID),
						logging.F("payload", truncate(payload, 200)),
						logging.Err(err),
					)
					continue
				}
				select {
				case ch <- event:
				case <-ctx.Done():
					return
				}
				count++
				if count == 1 {
					c.streamLog("stream events first", logging.F("project", projectID), logging.F("type", string(event.EventType)))
				}
				continue
			}
			if strings.HasPrefix(line, "data:") {
				dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			c.streamLog("stream events scan error", logging.F("project", projectID), logging.Err(err))
		}
		c.streamLog("stream events close",
			logging.F("project", projectID),
			logging.F("count", count),
			logging.F("dropped", dropped),
			logging.F("dur", time.Since(start)),
		)
	}()

	return ch, cancel, nil
}

func truncate(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	return fmt.Sprintf("%s...(%d bytes)", value[:limit], len(value))
}
