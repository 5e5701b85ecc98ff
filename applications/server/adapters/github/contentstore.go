// Package github implements interfaces.ContentStore on top of the GitHub
// repository-contents REST API. Files live at a path within a fixed
// repository and branch and are publicly reachable via the raw content host.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/donmikel/gitdrop/applications/server/config"
	"github.com/donmikel/gitdrop/applications/server/interfaces"
)

type contentStore struct {
	apiBaseURL string
	rawBaseURL string
	repository string
	branch     string
	token      string
	client     *http.Client
	logger     log.Logger
}

func NewContentStore(conf config.GitHub, client *http.Client, logger log.Logger) interfaces.ContentStore {
	if client == nil {
		client = http.DefaultClient
	}

	return &contentStore{
		apiBaseURL: strings.TrimRight(conf.APIBaseURL, "/"),
		rawBaseURL: strings.TrimRight(conf.RawBaseURL, "/"),
		repository: conf.Repository,
		branch:     conf.Branch,
		token:      conf.Token,
		client:     client,
		logger:     logger,
	}
}

type contentDescriptor struct {
	DownloadURL string `json:"download_url"`
	SHA         string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
}

type putResponse struct {
	Content *contentDescriptor `json:"content"`
}

type getResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type deleteRequest struct {
	Message string `json:"message"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch"`
}

func (c *contentStore) Put(ctx context.Context, path, message string, content []byte) (interfaces.PutResult, error) {
	reqBody := putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.branch,
	}

	raw, err := c.do(ctx, http.MethodPut, c.contentsURL(path), reqBody)
	if err != nil {
		return interfaces.PutResult{}, err
	}

	var resp putResponse
	if err = json.Unmarshal(raw, &resp); err != nil {
		return interfaces.PutResult{}, fmt.Errorf("can't parse store response: %w", err)
	}

	// The success marker is a populated download URL inside the content
	// descriptor; anything else is an API-level rejection.
	if resp.Content == nil || resp.Content.DownloadURL == "" {
		level.Error(c.logger).Log("msg", "store rejected put",
			"path", path,
			"body", string(raw),
		)
		return interfaces.PutResult{}, &interfaces.RejectedError{Body: raw}
	}

	return interfaces.PutResult{
		DownloadURL: resp.Content.DownloadURL,
		SHA:         resp.Content.SHA,
	}, nil
}

func (c *contentStore) Get(ctx context.Context, path string) ([]byte, error) {
	url := fmt.Sprintf("%s?ref=%s", c.contentsURL(path), c.branch)
	raw, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var resp getResponse
	if err = json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("can't parse store response: %w", err)
	}

	if resp.Content == "" || resp.Encoding != "base64" {
		return nil, &interfaces.RejectedError{Body: raw}
	}

	// The API wraps base64 payloads at 60 columns.
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("can't decode content: %w", err)
	}

	return data, nil
}

func (c *contentStore) Delete(ctx context.Context, path, message, sha string) error {
	reqBody := deleteRequest{
		Message: message,
		SHA:     sha,
		Branch:  c.branch,
	}

	raw, err := c.do(ctx, http.MethodDelete, c.contentsURL(path), reqBody)
	if err != nil {
		return err
	}

	var resp struct {
		Commit *struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	if err = json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("can't parse store response: %w", err)
	}

	if resp.Commit == nil || resp.Commit.SHA == "" {
		return &interfaces.RejectedError{Body: raw}
	}

	return nil
}

// PublicURL is derived from configuration alone; it is expected to coincide
// with the download URL the store reports but is not verified against it.
func (c *contentStore) PublicURL(path string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.rawBaseURL, c.repository, c.branch, path)
}

func (c *contentStore) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/contents/%s", c.apiBaseURL, c.repository, path)
}

func (c *contentStore) do(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("can't marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("can't create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("can't read store response: %w", err)
	}

	return raw, nil
}
