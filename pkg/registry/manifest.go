package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

func manifestURL(registryHost, repository, ref string) string {
	return fmt.Sprintf("https://%s/v2/%s/manifests/%s", registryHost, repository, ref)
}

// GetManifest fetches an image manifest by tag or digest, retrying once
// after a 401.
func (c *Client) GetManifest(image, ref string) (*v1.Manifest, error) {
	registryHost, repository := c.resolve(image)

	req, err := http.NewRequest(http.MethodGet, manifestURL(registryHost, repository, ref), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", manifestAccept)

	resp, err := c.doAuthed(req, registryHost, repository, "get_manifest", 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := readAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var m v1.Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: parse manifest: %v", ErrSerialization, err)
		}
		return &m, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: manifest %s:%s", ErrNotFound, image, ref)
	default:
		body, _ := readAll(resp.Body)
		return nil, fmt.Errorf("%w: get manifest %s: %s", ErrNetwork, resp.Status, string(body))
	}
}

// PutManifest uploads a manifest under ref.
func (c *Client) PutManifest(image, ref string, m *v1.Manifest) error {
	registryHost, repository := c.resolve(image)

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: marshal manifest: %v", ErrSerialization, err)
	}

	mediaType := m.MediaType
	if mediaType == "" {
		mediaType = defaultManifestMediaType
	}

	req, err := http.NewRequest(http.MethodPut, manifestURL(registryHost, repository, ref), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", mediaType)
	req.ContentLength = int64(len(data))

	resp, err := c.doAuthed(req, registryHost, repository, "put_manifest", 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := readAll(resp.Body)
		return fmt.Errorf("%w: put manifest %s: %s", ErrNetwork, resp.Status, string(body))
	}
	return nil
}

// ManifestExists reports whether ref exists, via HEAD.
func (c *Client) ManifestExists(image, ref string) (bool, error) {
	registryHost, repository := c.resolve(image)

	req, err := http.NewRequest(http.MethodHead, manifestURL(registryHost, repository, ref), nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", manifestAccept)

	resp, err := c.doAuthed(req, registryHost, repository, "manifest_exists", 0)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
