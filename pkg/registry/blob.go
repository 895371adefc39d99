package registry

import (
	"bytes"
	"fmt"
	"net/http"
)

func blobURL(registryHost, repository, digest string) string {
	return fmt.Sprintf("https://%s/v2/%s/blobs/%s", registryHost, repository, digest)
}

// GetBlob downloads a blob by digest. Digest integrity is the caller's
// responsibility; the bytes are passed through unchanged.
func (c *Client) GetBlob(image, digest string) ([]byte, error) {
	registryHost, repository := c.resolve(image)

	req, err := http.NewRequest(http.MethodGet, blobURL(registryHost, repository, digest), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	resp, err := c.doAuthed(req, registryHost, repository, "get_blob", 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return readAll(resp.Body)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: blob %s@%s", ErrNotFound, image, digest)
	default:
		body, _ := readAll(resp.Body)
		return nil, fmt.Errorf("%w: get blob %s: %s", ErrNetwork, resp.Status, string(body))
	}
}

// PutBlob uploads content under digest using the two-step monolithic
// upload flow: POST to start a session (202 Accepted + Location), then PUT
// the bytes to that URL.
func (c *Client) PutBlob(image, digest string, content []byte) error {
	registryHost, repository := c.resolve(image)

	uploadURL, err := c.initiateBlobUpload(registryHost, repository)
	if err != nil {
		return err
	}
	return c.uploadBlobContent(registryHost, repository, uploadURL, digest, content)
}

func (c *Client) initiateBlobUpload(registryHost, repository string) (string, error) {
	url := fmt.Sprintf("https://%s/v2/%s/blobs/uploads/", registryHost, repository)

	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	resp, err := c.doAuthed(req, registryHost, repository, "initiate_blob_upload", 0)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := readAll(resp.Body)
		return "", fmt.Errorf("%w: initiate blob upload: %s: %s", ErrNetwork, resp.Status, string(body))
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("%w: missing Location header from upload session", ErrNetwork)
	}
	return location, nil
}

func (c *Client) uploadBlobContent(registryHost, repository, uploadURL, digest string, content []byte) error {
	url := uploadURL
	if !bytes.ContainsRune([]byte(uploadURL), '?') {
		url += "?digest=" + digest
	} else {
		url += "&digest=" + digest
	}

	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = int64(len(content))

	resp, err := c.doAuthed(req, registryHost, repository, "upload_blob_content", 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := readAll(resp.Body)
		return fmt.Errorf("%w: upload blob content: %s: %s", ErrNetwork, resp.Status, string(body))
	}
	return nil
}

// BlobExists reports whether digest exists in image's repository, via HEAD.
func (c *Client) BlobExists(image, digest string) (bool, error) {
	registryHost, repository := c.resolve(image)

	req, err := http.NewRequest(http.MethodHead, blobURL(registryHost, repository, digest), nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	resp, err := c.doAuthed(req, registryHost, repository, "blob_exists", 0)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
