package backend

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultCloudinaryAPI = "https://api.cloudinary.com/v1_1"

// CloudinaryOptions configures the Cloudinary photo backend.
type CloudinaryOptions struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	// APIBase overrides the upload API root, e.g. for tests.
	APIBase string
}

// CloudinaryPhotos uploads photos through Cloudinary's signed upload API.
type CloudinaryPhotos struct {
	opts CloudinaryOptions
	HTTP *http.Client
	now  func() time.Time
}

// NewCloudinaryPhotos checks the credentials and returns the store.
func NewCloudinaryPhotos(opts CloudinaryOptions) (*CloudinaryPhotos, error) {
	if opts.CloudName == "" || opts.APIKey == "" || opts.APISecret == "" {
		return nil, errors.New("cloudinary: cloud name, api key and api secret are required")
	}
	if opts.APIBase == "" {
		opts.APIBase = defaultCloudinaryAPI
	}
	opts.APIBase = strings.TrimRight(opts.APIBase, "/")
	return &CloudinaryPhotos{
		opts: opts,
		HTTP: &http.Client{Timeout: 30 * time.Second},
		now:  time.Now,
	}, nil
}

type cloudinaryUpload struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
}

// Put uploads data under a public id derived from key (extension dropped)
// and returns the secure URL.
func (c *CloudinaryPhotos) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
		"public_id": strings.TrimSuffix(key, path.Ext(key)),
	}
	if c.opts.Folder != "" {
		params["folder"] = c.opts.Folder
	}
	params["signature"] = c.sign(params)
	params["api_key"] = c.opts.APIKey

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range params {
		if err := w.WriteField(k, v); err != nil {
			return "", errors.Wrap(err, "cloudinary: write field")
		}
	}
	part, err := w.CreateFormFile("file", path.Base(key))
	if err != nil {
		return "", errors.Wrap(err, "cloudinary: create form file")
	}
	if _, err := part.Write(data); err != nil {
		return "", errors.Wrap(err, "cloudinary: write file")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "cloudinary: close form")
	}

	url := c.opts.APIBase + "/" + c.opts.CloudName + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", errors.Wrap(err, "cloudinary: create request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "cloudinary: request")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return "", errors.Errorf("cloudinary: upload failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var res cloudinaryUpload
	if err := json.Unmarshal(body, &res); err != nil {
		return "", errors.Wrap(err, "cloudinary: decode response")
	}
	if res.SecureURL != "" {
		return res.SecureURL, nil
	}
	if res.URL != "" {
		return res.URL, nil
	}
	return "", errors.New("cloudinary: response has no url")
}

// sign is the SHA-1 of the sorted name=value pairs followed by the secret.
// api_key, file and resource_type never take part.
func (c *CloudinaryPhotos) sign(params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		switch k {
		case "api_key", "file", "resource_type":
			continue
		}
		if v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.opts.APISecret))
	return hex.EncodeToString(sum[:])
}
