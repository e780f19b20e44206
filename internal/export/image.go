package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/iwvelando/remaining-value/pkg/constants"
	"go.uber.org/zap"
)

// Uploader posts a captured summary image to an image host and returns the
// public link.
type Uploader struct {
	Endpoint  string
	FieldName string
	FileName  string
	Client    *http.Client
	logger    *zap.Logger
}

// NewUploader creates an Uploader with the default multipart field and file
// names.
func NewUploader(logger *zap.Logger, endpoint string, timeout time.Duration) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
	}
	return &Uploader{
		Endpoint:  endpoint,
		FieldName: constants.UploadFieldName,
		FileName:  constants.UploadFileName,
		Client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type uploadedImage struct {
	URL string `json:"url"`
}

// Upload sends image and returns the URL of the first uploaded file.
func (u *Uploader) Upload(ctx context.Context, image io.Reader) (string, error) {
	if u.Endpoint == "" {
		return "", fmt.Errorf("%w: no upload endpoint configured", ErrUploadFailure)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, u.FieldName, u.FileName))
	header.Set("Content-Type", "image/webp")
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailure, err)
	}
	size, err := io.Copy(part, image)
	if err != nil {
		return "", fmt.Errorf("%w: reading image: %v", ErrUploadFailure, err)
	}
	if size == 0 {
		return "", fmt.Errorf("%w: empty image", ErrUploadFailure)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailure, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: image host returned status %d", ErrUploadFailure, resp.StatusCode)
	}

	var uploaded []uploadedImage
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUploadFailure, err)
	}
	if len(uploaded) == 0 || uploaded[0].URL == "" {
		return "", fmt.Errorf("%w: response carried no url", ErrUploadFailure)
	}

	u.logger.Debug("image uploaded",
		zap.String("op", "export.Upload"),
		zap.Int64("bytes", size),
		zap.String("url", uploaded[0].URL),
	)
	return uploaded[0].URL, nil
}

// ImageMarkdown is the markdown snippet embedding an uploaded image.
func ImageMarkdown(url string) string {
	return fmt.Sprintf("![剩余价值计算结果](%s)", url)
}
