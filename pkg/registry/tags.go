package registry

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type tagsListResponse struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// ListTags returns every tag known for image's repository.
func (c *Client) ListTags(image string) ([]string, error) {
	registryHost, repository := c.resolve(image)
	url := fmt.Sprintf("https://%s/v2/%s/tags/list", registryHost, repository)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	resp, err := c.doAuthed(req, registryHost, repository, "list_tags", 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := readAll(resp.Body)
		return nil, fmt.Errorf("%w: list tags: %s: %s", ErrNetwork, resp.Status, string(body))
	}

	var tr tagsListResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: parse tags response: %v", ErrSerialization, err)
	}
	return tr.Tags, nil
}
